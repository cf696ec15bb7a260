package signaling

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Transport moves message batches to and from the server.
type Transport interface {
	PostMessages(ctx context.Context, sid string, batch []Envelope) error
	PullMessages(ctx context.Context, sid string) ([]PullItem, error)
}

// Relay queues outgoing messages, flushes them in order and dispatches what
// the pull loop receives.
type Relay struct {
	transport Transport
	events    *fanout
	log       zerolog.Logger

	flushInterval   time.Duration
	pullInitial     time.Duration
	pullMaxInterval time.Duration

	mu         sync.Mutex
	sid        string
	queue      []Message
	generation uint64

	flushing atomic.Bool
}

func newRelay(transport Transport, events *fanout, cfg Config) *Relay {
	return &Relay{
		transport:       transport,
		events:          events,
		log:             cfg.Logger.With().Str("component", "relay").Logger(),
		flushInterval:   cfg.FlushInterval,
		pullInitial:     cfg.PullInitialInterval,
		pullMaxInterval: cfg.PullMaxInterval,
	}
}

func (r *Relay) SetSession(sid string) {
	r.mu.Lock()
	r.sid = sid
	r.mu.Unlock()
}

func (r *Relay) Session() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sid
}

// Enqueue appends msg to the outgoing queue.
func (r *Relay) Enqueue(msg Message) {
	r.mu.Lock()
	r.queue = append(r.queue, msg)
	r.mu.Unlock()
}

func (r *Relay) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Reset drops the queue without sending it. A flush still in flight will
// not touch the new queue.
func (r *Relay) Reset() {
	r.mu.Lock()
	r.queue = nil
	r.generation++
	r.mu.Unlock()
}

// Flush posts the messages queued at call time. Only that prefix is removed
// on success; messages enqueued meanwhile wait for the next flush. A call
// while another flush is running returns immediately.
func (r *Relay) Flush(ctx context.Context) error {
	if !r.flushing.CompareAndSwap(false, true) {
		return nil
	}
	defer r.flushing.Store(false)

	r.mu.Lock()
	sid, gen, n := r.sid, r.generation, len(r.queue)
	snapshot := append([]Message(nil), r.queue...)
	r.mu.Unlock()

	if n == 0 || sid == "" {
		return nil
	}

	batch := make([]Envelope, 0, n)
	for _, msg := range snapshot {
		fn, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		batch = append(batch, Envelope{Ev: "message", Fn: string(fn), SessionID: sid})
	}

	if err := r.transport.PostMessages(ctx, sid, batch); err != nil {
		return err
	}

	r.mu.Lock()
	if gen == r.generation {
		r.queue = append([]Message(nil), r.queue[n:]...)
	}
	r.mu.Unlock()
	return nil
}

// runFlushLoop flushes every flushInterval until ctx is done.
func (r *Relay) runFlushLoop(ctx context.Context) {
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Flush(ctx); err != nil && ctx.Err() == nil {
				r.log.Warn().Err(err).Int("pending", r.Pending()).Msg("flush failed, will retry")
			}
		}
	}
}

// runPullLoop pulls back to back. Failures back off exponentially up to
// pullMaxInterval and never give up; only ctx ends the loop.
func (r *Relay) runPullLoop(ctx context.Context) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.pullInitial
	b.MaxInterval = r.pullMaxInterval
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		sid := r.Session()
		items, err := r.transport.PullMessages(ctx, sid)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			b.Reset()
			r.dispatch(items)
			continue
		}

		wait := b.NextBackOff()
		r.log.Warn().Err(err).Dur("retry_in", wait).Msg("pull failed")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (r *Relay) dispatch(items []PullItem) {
	for _, item := range items {
		switch item.Type {
		case string(EventUsersInRoom):
			var users []Peer
			if err := json.Unmarshal(item.Data, &users); err != nil {
				r.log.Warn().Err(err).Msg("bad usersInRoom payload")
				continue
			}
			r.events.publish(Event{Kind: EventUsersInRoom, Users: users})

		case string(EventMessage):
			msg, err := decodeMessage(item.Data)
			if err != nil {
				r.log.Warn().Err(err).Msg("bad message payload")
				continue
			}
			// the server stamps the sender; a from inside the payload is not trusted
			msg.From = item.From
			r.events.publish(Event{Kind: EventMessage, Message: msg})

		default:
			r.log.Debug().Str("type", item.Type).Msg("unknown pull item dropped")
		}
	}
}

// decodeMessage accepts the message object itself or a JSON string holding
// it, which is how the server forwards the sender's raw payload.
func decodeMessage(raw json.RawMessage) (*Message, error) {
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = json.RawMessage(encoded)
	}

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
