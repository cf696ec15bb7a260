package signaling

import "encoding/json"

type MessageType string

const (
	TypeOffer     MessageType = "offer"
	TypeAnswer    MessageType = "answer"
	TypeCandidate MessageType = "candidate"
	TypeCustom    MessageType = "custom"
)

// Message is a call setup message between two sessions. An empty To
// addresses every other session in the room.
type Message struct {
	To      string          `json:"to"`
	From    string          `json:"from,omitempty"`
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Peer is a participant currently in the call.
type Peer struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	LastPing  int64  `json:"lastPing"`
}

type Room struct {
	Token  string `json:"token"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	InCall int64  `json:"inCall"`
}

// Envelope is the wire form of one outgoing message.
type Envelope struct {
	Ev        string `json:"ev"`
	Fn        string `json:"fn"`
	SessionID string `json:"sessionId"`
}

// PullItem is one entry of a pull response.
type PullItem struct {
	Type string          `json:"type"`
	From string          `json:"from,omitempty"`
	Data json.RawMessage `json:"data"`
}
