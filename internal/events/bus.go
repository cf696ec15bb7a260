// Package events carries room lifecycle notifications. The store publishes
// a pre and a post event around every mutation; consumers subscribe by kind.
package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Kind identifies a lifecycle event.
type Kind string

const (
	RoomCreated        Kind = "room.created"
	RoomPreDelete      Kind = "room.pre_delete"
	RoomPostDelete     Kind = "room.post_delete"
	RoomPreSetName     Kind = "room.pre_set_name"
	RoomPostSetName    Kind = "room.post_set_name"
	RoomPreChangeType  Kind = "room.pre_change_type"
	RoomPostChangeType Kind = "room.post_change_type"

	ParticipantsPreAdd    Kind = "participants.pre_add"
	ParticipantsPostAdd   Kind = "participants.post_add"
	ParticipantPreRemove  Kind = "participant.pre_remove"
	ParticipantPostRemove Kind = "participant.post_remove"
)

// Event is a single notification. Data holds kind specific arguments such as
// "oldName"/"newName" or "userIds".
type Event struct {
	Kind      Kind
	RoomID    string
	RoomToken string
	Data      map[string]any
}

type Handler func(ctx context.Context, ev Event)

// Bus is the publish side used by the store and the subscribe side used at
// startup wiring.
type Bus interface {
	Subscribe(kind Kind, h Handler)
	Publish(ctx context.Context, ev Event)
}

// LocalBus dispatches synchronously, in subscription order.
type LocalBus struct {
	log zerolog.Logger

	mu       sync.RWMutex
	handlers map[Kind][]Handler
}

func NewLocalBus(logger zerolog.Logger) *LocalBus {
	return &LocalBus{
		log:      logger,
		handlers: make(map[Kind][]Handler),
	}
}

func (b *LocalBus) Subscribe(kind Kind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// SubscribeAll registers h for every known kind.
func (b *LocalBus) SubscribeAll(h Handler) {
	for _, kind := range AllKinds() {
		b.Subscribe(kind, h)
	}
}

func (b *LocalBus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[ev.Kind]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(ctx, h, ev)
	}
}

func (b *LocalBus) dispatch(ctx context.Context, h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Interface("panic", r).
				Str("kind", string(ev.Kind)).
				Msg("event handler panicked")
		}
	}()
	h(ctx, ev)
}

func AllKinds() []Kind {
	return []Kind{
		RoomCreated,
		RoomPreDelete, RoomPostDelete,
		RoomPreSetName, RoomPostSetName,
		RoomPreChangeType, RoomPostChangeType,
		ParticipantsPreAdd, ParticipantsPostAdd,
		ParticipantPreRemove, ParticipantPostRemove,
	}
}

// Nop discards everything. Useful for tests and tools.
type Nop struct{}

func (Nop) Subscribe(Kind, Handler) {}
func (Nop) Publish(context.Context, Event) {}
