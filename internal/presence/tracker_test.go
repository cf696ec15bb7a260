package presence

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thereayou/talk-signaling/internal/database"
	"github.com/thereayou/talk-signaling/internal/models"
)

func newStore(t *testing.T, opts ...database.Option) *database.Database {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	store := database.NewDatabase(db, opts...)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestPruneStaleGuests_Boundaries(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	tr := NewTracker(store, zerolog.Nop(), WithClock(fixedClock(now)))

	room, _ := store.CreateRoom(ctx, models.RoomPublic, "", "alice")
	_, _ = store.InsertGuest(ctx, room, "old")
	_, _ = store.InsertGuest(ctx, room, "new")
	_ = store.AssignUserSession(ctx, room, "alice", "user")

	_ = tr.Ping(ctx, room.ID, "", "old", now.Add(-31*time.Second).Unix())
	_ = tr.Ping(ctx, room.ID, "", "new", now.Add(-10*time.Second).Unix())
	_ = tr.Ping(ctx, room.ID, "alice", "user", now.Add(-time.Hour).Unix())

	n, err := tr.PruneStaleGuests(ctx, room.ID, 30*time.Second)
	if err != nil {
		t.Fatalf("PruneStaleGuests: %v", err)
	}
	if n != 1 {
		t.Fatalf("pruned=%d, want 1", n)
	}

	snap, err := tr.ListActive(ctx, room.ID, 0)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(snap.Guests) != 1 || snap.Guests[0].Session() != "new" {
		t.Fatalf("guests=%+v, want only new", snap.Guests)
	}
	if len(snap.Users) != 1 || snap.Users[0].UserID != "alice" {
		t.Fatalf("users=%+v, want alice kept", snap.Users)
	}
}

func TestPing_MismatchIsNoop(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	tr := NewTracker(store, zerolog.Nop(), WithClock(fixedClock(time.Unix(5000, 0))))

	room, _ := store.CreateRoom(ctx, models.RoomGroup, "", "alice")
	_ = store.AssignUserSession(ctx, room, "alice", "current")

	if err := tr.Ping(ctx, room.ID, "alice", "previous", 0); err != nil {
		t.Fatalf("Ping with stale session: %v", err)
	}
	p, _ := store.GetParticipant(ctx, room.ID, "alice")
	if p.LastPing != 0 {
		t.Fatalf("last_ping=%d, want untouched 0", p.LastPing)
	}

	_ = tr.Ping(ctx, room.ID, "alice", "current", 0)
	p, _ = store.GetParticipant(ctx, room.ID, "alice")
	if p.LastPing != 5000 {
		t.Fatalf("last_ping=%d, want 5000", p.LastPing)
	}
}

func TestListActiveAndCount_Since(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Unix(10_000, 0)
	tr := NewTracker(store, zerolog.Nop(), WithClock(fixedClock(now)), WithActiveWindow(30*time.Second))

	room, _ := store.CreateRoom(ctx, models.RoomPublic, "", "alice", "bob")
	_ = store.AssignUserSession(ctx, room, "alice", "a")
	_ = store.AssignUserSession(ctx, room, "bob", "b")
	_ = tr.Ping(ctx, room.ID, "alice", "a", now.Unix()-5)
	_ = tr.Ping(ctx, room.ID, "bob", "b", now.Unix()-60)

	since := tr.ActiveSince()
	if since != now.Unix()-30 {
		t.Fatalf("ActiveSince=%d, want %d", since, now.Unix()-30)
	}

	snap, _ := tr.ListActive(ctx, room.ID, since)
	if len(snap.All()) != 1 || snap.Users[0].UserID != "alice" {
		t.Fatalf("active=%+v, want only alice", snap.All())
	}

	n, _ := tr.Count(ctx, room.ID, since)
	if n != 1 {
		t.Fatalf("Count(since)=%d, want 1", n)
	}
	n, _ = tr.Count(ctx, room.ID, 0)
	if n != 2 {
		t.Fatalf("Count(0)=%d, want 2", n)
	}
}

func TestSweeper_Sweep(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	tr := NewTracker(store, zerolog.Nop(), WithClock(fixedClock(now)))

	r1, _ := store.CreateRoom(ctx, models.RoomPublic, "")
	r2, _ := store.CreateRoom(ctx, models.RoomPublic, "")
	_, _ = store.InsertGuest(ctx, r1, "g1")
	_, _ = store.InsertGuest(ctx, r2, "g2")
	_, _ = store.InsertGuest(ctx, r2, "g3")
	_ = tr.Ping(ctx, r1.ID, "", "g1", now.Unix()-60)
	_ = tr.Ping(ctx, r2.ID, "", "g2", now.Unix()-60)
	_ = tr.Ping(ctx, r2.ID, "", "g3", now.Unix())

	if n := NewSweeper(tr, time.Minute).Sweep(ctx); n != 2 {
		t.Fatalf("swept=%d, want 2", n)
	}
	if _, err := store.GetParticipantBySession(ctx, "g3"); err != nil {
		t.Fatalf("live guest swept: %v", err)
	}
}

func TestSweeper_KeepsGuestBeforeFirstPing(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store := newStore(t, database.WithClock(fixedClock(now)))
	ctx := context.Background()
	tr := NewTracker(store, zerolog.Nop(), WithClock(fixedClock(now.Add(5*time.Second))))

	room, _ := store.CreateRoom(ctx, models.RoomPublic, "")
	guest, err := store.InsertGuest(ctx, room, "joining")
	if err != nil {
		t.Fatalf("InsertGuest: %v", err)
	}
	if guest.LastPing != now.Unix() {
		t.Fatalf("last_ping=%d, want %d", guest.LastPing, now.Unix())
	}

	if n := NewSweeper(tr, time.Minute).Sweep(ctx); n != 0 {
		t.Fatalf("swept=%d, want 0", n)
	}
	if _, err := store.GetParticipantBySession(ctx, "joining"); err != nil {
		t.Fatalf("new guest swept: %v", err)
	}
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	tr := NewTracker(newStore(t), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewSweeper(tr, 10*time.Millisecond).Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
