// Package relay moves signaling payloads between call sessions through
// per-session Redis mailboxes.
package relay

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	mailboxPrefix     = "signaling:mailbox:"
	DefaultMailboxTTL = 5 * time.Minute
)

// Delivery is one queued message. Data is the sender's payload, untouched.
type Delivery struct {
	ID         string `msgpack:"id"`
	Type       string `msgpack:"type"`
	From       string `msgpack:"from"`
	To         string `msgpack:"to"`
	Data       string `msgpack:"data"`
	EnqueuedAt int64  `msgpack:"ts"`
}

// Mailbox is a FIFO list per session id. Keys expire after ttl without
// writes, so mail for sessions that never pull again goes away.
type Mailbox struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

func NewMailbox(rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *Mailbox {
	if ttl <= 0 {
		ttl = DefaultMailboxTTL
	}
	return &Mailbox{
		rdb: rdb,
		ttl: ttl,
		log: logger.With().Str("component", "mailbox").Logger(),
	}
}

func mailboxKey(sid string) string {
	return mailboxPrefix + sid
}

// Post appends d to the mailbox of every recipient. ID and EnqueuedAt are
// filled in when empty.
func (m *Mailbox) Post(ctx context.Context, d Delivery, recipients ...string) error {
	if len(recipients) == 0 {
		return nil
	}
	if d.ID == "" {
		d.ID = ulid.Make().String()
	}
	if d.EnqueuedAt == 0 {
		d.EnqueuedAt = time.Now().Unix()
	}

	_, err := m.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, sid := range recipients {
			d.To = sid
			raw, err := msgpack.Marshal(&d)
			if err != nil {
				return err
			}
			key := mailboxKey(sid)
			pipe.RPush(ctx, key, raw)
			pipe.Expire(ctx, key, m.ttl)
		}
		return nil
	})
	return err
}

// Pull returns everything queued for sid. When the mailbox is empty it waits
// up to timeout for the first delivery. An empty slice after the timeout is
// not an error.
func (m *Mailbox) Pull(ctx context.Context, sid string, timeout time.Duration) ([]Delivery, error) {
	out, err := m.drain(ctx, sid)
	if err != nil || len(out) > 0 {
		return out, err
	}

	res, err := m.rdb.BLPop(ctx, timeout, mailboxKey(sid)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// res is [key, value]
	if d, ok := m.decode(res[1]); ok {
		out = append(out, d)
	}

	// the popped entry is already gone from Redis; hand it over even if the
	// follow-up drain fails, the rest stays queued for the next pull
	rest, err := m.drain(ctx, sid)
	if err != nil {
		m.log.Warn().Err(err).Str("sid", short(sid)).Msg("drain after wake-up failed")
		return out, nil
	}
	return append(out, rest...), nil
}

// drain reads and deletes the whole list in one MULTI block.
func (m *Mailbox) drain(ctx context.Context, sid string) ([]Delivery, error) {
	key := mailboxKey(sid)

	var lrange *redis.StringSliceCmd
	_, err := m.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, err
	}

	raw := lrange.Val()
	out := make([]Delivery, 0, len(raw))
	for _, entry := range raw {
		if d, ok := m.decode(entry); ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *Mailbox) decode(raw string) (Delivery, bool) {
	var d Delivery
	if err := msgpack.Unmarshal([]byte(raw), &d); err != nil {
		m.log.Warn().Err(err).Msg("dropping undecodable mailbox entry")
		return Delivery{}, false
	}
	return d, true
}
