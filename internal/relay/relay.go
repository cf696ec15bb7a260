package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/thereayou/talk-signaling/internal/metrics"
	"github.com/thereayou/talk-signaling/internal/models"
	"github.com/thereayou/talk-signaling/internal/presence"
)

const (
	EvMessage = "message"

	DefaultPullTimeout = 30 * time.Second
)

// Envelope is one entry of a posted batch. Fn is a JSON encoded payload
// carrying at least "to" and "type".
type Envelope struct {
	Ev        string `json:"ev"`
	Fn        string `json:"fn"`
	SessionID string `json:"sessionId"`
}

type payloadHeader struct {
	To   string `json:"to"`
	Type string `json:"type"`
}

type Directory interface {
	GetParticipantBySession(ctx context.Context, sid string) (*models.Participant, error)
}

type Presence interface {
	ListActive(ctx context.Context, roomID uuid.UUID, since int64) (presence.Snapshot, error)
	ActiveSince() int64
}

// Batch is what a pull hands back: the caller's room roster and its mail.
type Batch struct {
	Users    []models.Participant
	Messages []Delivery
}

type Service struct {
	mailbox     *Mailbox
	dir         Directory
	presence    Presence
	pullTimeout time.Duration
	log         zerolog.Logger
}

func NewService(mailbox *Mailbox, dir Directory, p Presence, pullTimeout time.Duration, logger zerolog.Logger) *Service {
	if pullTimeout <= 0 {
		pullTimeout = DefaultPullTimeout
	}
	return &Service{
		mailbox:     mailbox,
		dir:         dir,
		presence:    p,
		pullTimeout: pullTimeout,
		log:         logger.With().Str("component", "relay").Logger(),
	}
}

// Post routes a batch sent by sender. Entries addressed to a session are
// delivered there if it is in the same room; entries without a recipient go
// to every other active session of the room. It returns the number of
// mailbox writes.
func (s *Service) Post(ctx context.Context, sender *models.Participant, batch []Envelope) (int, error) {
	from := sender.Session()
	delivered := 0

	for _, env := range batch {
		if env.Ev != EvMessage {
			s.log.Debug().Str("ev", env.Ev).Msg("ignoring non message event")
			continue
		}

		var hdr payloadHeader
		if err := json.Unmarshal([]byte(env.Fn), &hdr); err != nil {
			s.log.Warn().Err(err).Str("from", short(from)).Msg("dropping malformed signaling payload")
			continue
		}

		recipients, err := s.recipients(ctx, sender, hdr.To)
		if err != nil {
			return delivered, err
		}
		if len(recipients) == 0 {
			continue
		}

		d := Delivery{Type: hdr.Type, From: from, Data: env.Fn}
		if err := s.mailbox.Post(ctx, d, recipients...); err != nil {
			return delivered, err
		}
		delivered += len(recipients)
		metrics.SignalingMessagesRelayed.WithLabelValues(typeLabel(hdr.Type)).Add(float64(len(recipients)))
	}

	return delivered, nil
}

func (s *Service) recipients(ctx context.Context, sender *models.Participant, to string) ([]string, error) {
	if to != "" {
		peer, err := s.dir.GetParticipantBySession(ctx, to)
		if err != nil || peer.RoomID != sender.RoomID {
			s.log.Debug().Str("to", short(to)).Msg("recipient not in sender's room, dropped")
			return nil, nil
		}
		return []string{to}, nil
	}

	snap, err := s.presence.ListActive(ctx, sender.RoomID, s.presence.ActiveSince())
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range snap.All() {
		if sid := p.Session(); sid != "" && sid != sender.Session() {
			out = append(out, sid)
		}
	}
	return out, nil
}

// Pull waits for mail addressed to caller and returns it with the roster of
// the caller's room. The roster is read before the mailbox is drained so a
// store failure never discards mail; after the wait it is refreshed, keeping
// the first read if that fails.
func (s *Service) Pull(ctx context.Context, caller *models.Participant) (Batch, error) {
	snap, err := s.presence.ListActive(ctx, caller.RoomID, s.presence.ActiveSince())
	if err != nil {
		return Batch{}, err
	}

	messages, err := s.mailbox.Pull(ctx, caller.Session(), s.pullTimeout)
	if err != nil {
		return Batch{}, err
	}

	if fresh, err := s.presence.ListActive(ctx, caller.RoomID, s.presence.ActiveSince()); err == nil {
		snap = fresh
	} else if ctx.Err() == nil {
		s.log.Warn().Err(err).Msg("roster refresh failed, using the one read before the wait")
	}

	result := "timeout"
	if len(messages) > 0 {
		result = "messages"
	}
	metrics.SignalingPulls.WithLabelValues(result).Inc()

	return Batch{Users: snap.All(), Messages: messages}, nil
}

func typeLabel(t string) string {
	switch t {
	case "offer", "answer", "candidate":
		return t
	}
	return "custom"
}

// short keeps logs readable; session ids are 255 characters.
func short(sid string) string {
	if len(sid) > 8 {
		return sid[:8]
	}
	return sid
}
