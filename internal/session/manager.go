// Package session hands out call session identifiers and binds them to
// participant rows.
package session

import (
	"context"
	"crypto/rand"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/thereayou/talk-signaling/internal/database"
	"github.com/thereayou/talk-signaling/internal/metrics"
	"github.com/thereayou/talk-signaling/internal/models"
)

const (
	DefaultLength      = 255
	DefaultMaxAttempts = 10
)

var ErrAllocationExhausted = errors.New("session: no free identifier after max attempts")

// Store is the subset of the room store the manager writes through.
type Store interface {
	AssignUserSession(ctx context.Context, room *models.Room, userID, sid string) error
	InsertGuest(ctx context.Context, room *models.Room, sid string) (*models.Participant, error)
	ClearUserSession(ctx context.Context, roomID uuid.UUID, userID, sid string) error
	DeleteGuestSession(ctx context.Context, roomID uuid.UUID, sid string) error
}

// Generator returns a random identifier of n characters.
type Generator func(n int) (string, error)

type Manager struct {
	store       Store
	generate    Generator
	length      int
	maxAttempts int
	log         zerolog.Logger
}

type Option func(*Manager)

func WithGenerator(g Generator) Option {
	return func(m *Manager) { m.generate = g }
}

func WithLength(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.length = n
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

func NewManager(store Store, logger zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		generate:    RandomID,
		length:      DefaultLength,
		maxAttempts: DefaultMaxAttempts,
		log:         logger.With().Str("component", "session").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Allocate generates identifiers until commit accepts one. commit must bind
// the identifier atomically and report database.ErrDuplicateSession when it
// is already taken; any other error is returned as is.
func (m *Manager) Allocate(ctx context.Context, commit func(ctx context.Context, sid string) error) (string, error) {
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		sid, err := m.generate(m.length)
		if err != nil {
			return "", err
		}

		err = commit(ctx, sid)
		if err == nil {
			return sid, nil
		}
		if !errors.Is(err, database.ErrDuplicateSession) {
			return "", err
		}

		metrics.SessionCollisions.Inc()
		m.log.Debug().Int("attempt", attempt).Msg("session id collision, retrying")
	}
	return "", ErrAllocationExhausted
}

// BindAsUser gives userID a fresh session in room and disconnects the user
// from every other room.
func (m *Manager) BindAsUser(ctx context.Context, room *models.Room, userID string) (string, error) {
	sid, err := m.Allocate(ctx, func(ctx context.Context, sid string) error {
		return m.store.AssignUserSession(ctx, room, userID, sid)
	})
	if err != nil {
		return "", err
	}
	metrics.SessionsAllocated.WithLabelValues(models.ActorUser).Inc()
	return sid, nil
}

// BindAsGuest inserts a new guest row. Guests never reuse rows.
func (m *Manager) BindAsGuest(ctx context.Context, room *models.Room) (string, error) {
	sid, err := m.Allocate(ctx, func(ctx context.Context, sid string) error {
		_, err := m.store.InsertGuest(ctx, room, sid)
		return err
	})
	if err != nil {
		return "", err
	}
	metrics.SessionsAllocated.WithLabelValues(models.ActorGuest).Inc()
	return sid, nil
}

// Release ends a call. A user keeps the row but loses the session if it is
// still sid; a guest row is removed.
func (m *Manager) Release(ctx context.Context, room *models.Room, userID, sid string) error {
	if sid == "" {
		return nil
	}
	if userID != "" {
		return m.store.ClearUserSession(ctx, room.ID, userID, sid)
	}
	return m.store.DeleteGuestSession(ctx, room.ID, sid)
}

const idChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// RandomID draws n characters from [A-Za-z0-9] using crypto/rand.
func RandomID(n int) (string, error) {
	// largest multiple of len(idChars) below 256, to keep the draw uniform
	const limit = 256 - 256%len(idChars)

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, idChars[int(b)%len(idChars)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
