package signaling

// PeerOptions says which media to negotiate with a peer.
type PeerOptions struct {
	Video bool
}

// PeerContactList maps a peer session id to the options to contact it with.
type PeerContactList map[string]PeerOptions

// PeerContacts picks the peers this session must call. Of any two sessions
// the one with the greater id places the call, so every pair is contacted
// exactly once.
func PeerContacts(own string, peers []Peer) PeerContactList {
	out := PeerContactList{}
	for _, p := range peers {
		if p.SessionID != "" && p.SessionID < own {
			out[p.SessionID] = PeerOptions{Video: true}
		}
	}
	return out
}
