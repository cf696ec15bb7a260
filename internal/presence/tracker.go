// Package presence keeps participant liveness: pings, active listings and
// pruning of guests that stopped pinging.
package presence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/thereayou/talk-signaling/internal/metrics"
	"github.com/thereayou/talk-signaling/internal/models"
)

const (
	DefaultGuestMaxAge  = 30 * time.Second
	DefaultActiveWindow = 30 * time.Second
)

type Store interface {
	TouchParticipant(ctx context.Context, roomID uuid.UUID, userID, sid string, ts int64) (int64, error)
	ListParticipants(ctx context.Context, roomID uuid.UUID, since int64) ([]models.Participant, error)
	CountParticipants(ctx context.Context, roomID uuid.UUID, since int64) (int64, error)
	DeleteStaleGuests(ctx context.Context, roomID uuid.UUID, cutoff int64) (int64, error)
	RoomIDsWithGuests(ctx context.Context) ([]uuid.UUID, error)
}

// Snapshot is a room's participant list split into named users and guests.
type Snapshot struct {
	Users  []models.Participant
	Guests []models.Participant
}

// All returns users followed by guests.
func (s Snapshot) All() []models.Participant {
	out := make([]models.Participant, 0, len(s.Users)+len(s.Guests))
	out = append(out, s.Users...)
	return append(out, s.Guests...)
}

type Tracker struct {
	store        Store
	now          func() time.Time
	guestMaxAge  time.Duration
	activeWindow time.Duration
	log          zerolog.Logger
}

type Option func(*Tracker)

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func WithGuestMaxAge(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.guestMaxAge = d
		}
	}
}

func WithActiveWindow(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.activeWindow = d
		}
	}
}

func NewTracker(store Store, logger zerolog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		store:        store,
		now:          time.Now,
		guestMaxAge:  DefaultGuestMaxAge,
		activeWindow: DefaultActiveWindow,
		log:          logger.With().Str("component", "presence").Logger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Ping records ts (now when zero) for the row holding sid. A row that no
// longer holds sid is left alone; that is not an error.
func (t *Tracker) Ping(ctx context.Context, roomID uuid.UUID, userID, sid string, ts int64) error {
	if ts == 0 {
		ts = t.now().Unix()
	}
	n, err := t.store.TouchParticipant(ctx, roomID, userID, sid, ts)
	if err != nil {
		return err
	}
	if n == 0 {
		t.log.Debug().Str("room", roomID.String()).Msg("ping for a session that moved on, ignored")
	}
	return nil
}

// ListActive returns the room's participants that pinged after since, or all
// of them when since is zero.
func (t *Tracker) ListActive(ctx context.Context, roomID uuid.UUID, since int64) (Snapshot, error) {
	rows, err := t.store.ListParticipants(ctx, roomID, since)
	if err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	for _, p := range rows {
		if p.IsGuest() {
			snap.Guests = append(snap.Guests, p)
		} else {
			snap.Users = append(snap.Users, p)
		}
	}
	return snap, nil
}

func (t *Tracker) Count(ctx context.Context, roomID uuid.UUID, since int64) (int64, error) {
	return t.store.CountParticipants(ctx, roomID, since)
}

// PruneStaleGuests deletes guests whose last ping is maxAge or more in the
// past. A non-positive maxAge uses the configured default.
func (t *Tracker) PruneStaleGuests(ctx context.Context, roomID uuid.UUID, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		maxAge = t.guestMaxAge
	}
	cutoff := t.now().Add(-maxAge).Unix()

	n, err := t.store.DeleteStaleGuests(ctx, roomID, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.GuestsPruned.Add(float64(n))
		t.log.Info().Str("room", roomID.String()).Int64("pruned", n).Msg("stale guests removed")
	}
	return n, nil
}

// ActiveSince is the ping threshold for "currently in the call".
func (t *Tracker) ActiveSince() int64 {
	return t.now().Add(-t.activeWindow).Unix()
}
