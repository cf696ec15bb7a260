package dto

import (
	"encoding/json"
	"errors"

	"github.com/thereayou/talk-signaling/internal/models"
	"github.com/thereayou/talk-signaling/internal/relay"
)

type JoinResponse struct {
	SessionID string `json:"sessionId"`
}

// Peer is one connected participant as seen by other call members.
type Peer struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	LastPing  int64  `json:"lastPing"`
}

// PeersFrom keeps only participants that currently hold a session.
func PeersFrom(participants []models.Participant) []Peer {
	peers := make([]Peer, 0, len(participants))
	for _, p := range participants {
		if p.Session() == "" {
			continue
		}
		peers = append(peers, Peer{UserID: p.UserID, SessionID: p.Session(), LastPing: p.LastPing})
	}
	return peers
}

// SignalingPostRequest accepts "messages" either as an array or as a JSON
// string holding the array.
type SignalingPostRequest struct {
	Messages json.RawMessage `json:"messages" binding:"required"`
}

func (r SignalingPostRequest) Envelopes() ([]relay.Envelope, error) {
	raw := r.Messages
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = json.RawMessage(encoded)
	}

	var out []relay.Envelope
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.New("messages must be a list of {ev, fn, sessionId}")
	}
	return out, nil
}

// PullItem is one entry of a pull response. Data is the roster for
// "usersInRoom" and the sender's raw payload string for "message".
type PullItem struct {
	Type string `json:"type"`
	From string `json:"from,omitempty"`
	Data any    `json:"data"`
}

type PullResponse struct {
	Data []PullItem `json:"data"`
}
