package relay

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

func newTestMailbox(t *testing.T, ttl time.Duration) (*Mailbox, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewMailbox(rdb, ttl, zerolog.Nop()), mr
}

func TestMailbox_PostPullFIFO(t *testing.T) {
	mb, mr := newTestMailbox(t, time.Minute)
	ctx := context.Background()

	for _, typ := range []string{"offer", "candidate", "candidate"} {
		if err := mb.Post(ctx, Delivery{Type: typ, From: "A", Data: `{"type":"` + typ + `"}`}, "B"); err != nil {
			t.Fatalf("Post: %v", err)
		}
	}

	if ttl := mr.TTL(mailboxKey("B")); ttl != time.Minute {
		t.Fatalf("ttl=%v, want 1m", ttl)
	}

	got, err := mb.Pull(ctx, "B", time.Second)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len=%d, want 3", len(got))
	}
	if got[0].Type != "offer" || got[1].Type != "candidate" {
		t.Fatalf("order=%s,%s, want offer,candidate", got[0].Type, got[1].Type)
	}
	if got[0].ID == "" || got[0].ID == got[1].ID {
		t.Fatalf("ids=%q,%q, want distinct non-empty", got[0].ID, got[1].ID)
	}
	if got[0].From != "A" || got[0].To != "B" {
		t.Fatalf("from/to=%s/%s, want A/B", got[0].From, got[0].To)
	}
	if mr.Exists(mailboxKey("B")) {
		t.Fatalf("mailbox not removed after drain")
	}
}

func TestMailbox_PostFansOut(t *testing.T) {
	mb, _ := newTestMailbox(t, 0)
	ctx := context.Background()

	if err := mb.Post(ctx, Delivery{Type: "custom", From: "A", Data: "{}"}, "B", "C"); err != nil {
		t.Fatalf("Post: %v", err)
	}
	for _, sid := range []string{"B", "C"} {
		got, _ := mb.Pull(ctx, sid, time.Second)
		if len(got) != 1 || got[0].To != sid {
			t.Fatalf("%s got %+v, want one delivery addressed to it", sid, got)
		}
	}
	if got, _ := mb.drain(ctx, "A"); len(got) != 0 {
		t.Fatalf("sender received its own message")
	}
}

func TestMailbox_PullTimesOutEmpty(t *testing.T) {
	mb, _ := newTestMailbox(t, time.Minute)

	start := time.Now()
	got, err := mb.Pull(context.Background(), "nobody", time.Second)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d deliveries, want none", len(got))
	}
	if elapsed := time.Since(start); elapsed < 500*time.Millisecond {
		t.Fatalf("returned after %v, want to wait for the timeout", elapsed)
	}
}

func TestMailbox_PullWakesOnPost(t *testing.T) {
	mb, _ := newTestMailbox(t, time.Minute)
	ctx := context.Background()

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = mb.Post(ctx, Delivery{Type: "answer", From: "A", Data: "{}"}, "B")
	}()

	got, err := mb.Pull(ctx, "B", 5*time.Second)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if len(got) != 1 || got[0].Type != "answer" {
		t.Fatalf("got %+v, want one answer", got)
	}
}

func TestMailbox_SkipsUndecodableEntries(t *testing.T) {
	mb, mr := newTestMailbox(t, time.Minute)
	ctx := context.Background()

	if _, err := mr.Push(mailboxKey("B"), "not msgpack at all \xc1"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_ = mb.Post(ctx, Delivery{Type: "offer", From: "A", Data: "{}"}, "B")

	got, err := mb.Pull(ctx, "B", time.Second)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if len(got) != 1 || got[0].Type != "offer" {
		t.Fatalf("got %+v, want only the offer", got)
	}
}
