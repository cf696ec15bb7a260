// Package signaling is the client side of call signaling: joining calls,
// keeping them alive, and exchanging offers, answers and candidates with
// the other sessions of a room.
package signaling

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrUnknownBackend = errors.New("signaling: unknown backend")

// Signaling is a call signaling transport.
type Signaling interface {
	Join(ctx context.Context, roomToken string) (string, PeerContactList, error)
	Leave(ctx context.Context) error
	Send(msg Message)
	Subscribe(buffer int) (<-chan Event, func())
	Close() error
}

// New builds the transport selected by cfg.Backend.
func New(cfg Config) (Signaling, error) {
	cfg = cfg.withDefaults()
	switch cfg.Backend {
	case BackendInternal:
		return newInternal(cfg), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}

// Internal signals over the server's own polling endpoints.
type Internal struct {
	*Coordinator
	relay  *Relay
	events *fanout

	stop     context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}
}

func newInternal(cfg Config) *Internal {
	api := NewAPI(cfg.BaseURL, cfg.AuthToken, cfg.HTTPClient)
	events := newFanout(cfg.Logger)
	relay := newRelay(api, events, cfg)

	s := &Internal{
		Coordinator: newCoordinator(api, relay, events, cfg),
		relay:       relay,
		events:      events,
		done:        make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	if cfg.AuthToken != "" {
		go func() {
			defer close(s.done)
			s.RunRoomRefresh(ctx)
		}()
	} else {
		close(s.done)
	}
	return s
}

// Send queues msg for the next flush. Its sender is filled in by the server.
func (s *Internal) Send(msg Message) {
	s.relay.Enqueue(msg)
}

func (s *Internal) Subscribe(buffer int) (<-chan Event, func()) {
	return s.events.subscribe(buffer)
}

// Close leaves any call and stops background work.
func (s *Internal) Close() error {
	err := s.Leave(context.Background())
	s.stopOnce.Do(s.stop)
	<-s.done
	return err
}
