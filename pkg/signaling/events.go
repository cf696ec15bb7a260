package signaling

import (
	"sync"

	"github.com/rs/zerolog"
)

type EventKind string

const (
	EventUsersInRoom EventKind = "usersInRoom"
	EventMessage     EventKind = "message"
	EventCallLeft    EventKind = "callLeft"
	EventRooms       EventKind = "rooms"
)

// Event is delivered to subscribers. Only the field matching Kind is set.
type Event struct {
	Kind    EventKind
	Users   []Peer
	Message *Message
	Rooms   []Room
	Reason  string
}

// fanout copies events to every subscriber. A subscriber that does not keep
// up loses events rather than stalling the loops.
type fanout struct {
	log zerolog.Logger

	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func newFanout(log zerolog.Logger) *fanout {
	return &fanout{log: log, subs: make(map[int]chan Event)}
}

func (f *fanout) subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(ch)
		})
	}
}

func (f *fanout) publish(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- ev:
		default:
			f.log.Warn().Str("kind", string(ev.Kind)).Msg("subscriber too slow, event dropped")
		}
	}
}
