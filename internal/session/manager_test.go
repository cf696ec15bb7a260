package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/thereayou/talk-signaling/internal/database"
	"github.com/thereayou/talk-signaling/internal/models"
)

// memStore mimics the unique session index with a mutex guarded set.
type memStore struct {
	mu     sync.Mutex
	taken  map[string]bool
	guests map[string]bool
	users  map[string]string
}

func newMemStore() *memStore {
	return &memStore{taken: map[string]bool{}, guests: map[string]bool{}, users: map[string]string{}}
}

func (s *memStore) claim(sid string) error {
	if s.taken[sid] {
		return database.ErrDuplicateSession
	}
	s.taken[sid] = true
	return nil
}

func (s *memStore) AssignUserSession(_ context.Context, _ *models.Room, userID, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.claim(sid); err != nil {
		return err
	}
	s.users[userID] = sid
	return nil
}

func (s *memStore) InsertGuest(_ context.Context, room *models.Room, sid string) (*models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.claim(sid); err != nil {
		return nil, err
	}
	s.guests[sid] = true
	return &models.Participant{RoomID: room.ID, Role: models.RoleGuest, SessionID: &sid}, nil
}

func (s *memStore) ClearUserSession(_ context.Context, _ uuid.UUID, userID, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users[userID] == sid {
		delete(s.users, userID)
	}
	return nil
}

func (s *memStore) DeleteGuestSession(_ context.Context, _ uuid.UUID, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.guests, sid)
	return nil
}

// pairedGenerator emits every identifier twice, so half the draws collide.
func pairedGenerator() Generator {
	var n int64
	return func(int) (string, error) {
		return fmt.Sprintf("sid-%d", (atomic.AddInt64(&n, 1)-1)/2), nil
	}
}

func TestAllocate_ConcurrentUnique(t *testing.T) {
	store := newMemStore()
	m := NewManager(store, zerolog.Nop(), WithGenerator(pairedGenerator()))
	room := &models.Room{ID: uuid.New(), Kind: models.RoomPublic}

	const workers = 64
	var wg sync.WaitGroup
	sids := make([]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sids[i], errs[i] = m.BindAsGuest(context.Background(), room)
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if seen[sids[i]] {
			t.Fatalf("sid %q handed out twice", sids[i])
		}
		seen[sids[i]] = true
	}
	if len(store.guests) != workers {
		t.Fatalf("guests=%d, want %d", len(store.guests), workers)
	}
}

func TestAllocate_Exhausted(t *testing.T) {
	store := newMemStore()
	store.taken["same"] = true
	calls := 0
	m := NewManager(store, zerolog.Nop(),
		WithMaxAttempts(4),
		WithGenerator(func(int) (string, error) { calls++; return "same", nil }),
	)

	_, err := m.BindAsUser(context.Background(), &models.Room{ID: uuid.New()}, "alice")
	if !errors.Is(err, ErrAllocationExhausted) {
		t.Fatalf("err=%v, want ErrAllocationExhausted", err)
	}
	if calls != 4 {
		t.Fatalf("calls=%d, want 4", calls)
	}
}

func TestAllocate_OtherErrorsNotRetried(t *testing.T) {
	m := NewManager(newMemStore(), zerolog.Nop())
	boom := errors.New("boom")

	calls := 0
	_, err := m.Allocate(context.Background(), func(context.Context, string) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("err=%v calls=%d, want boom after 1 call", err, calls)
	}
}

func TestRelease(t *testing.T) {
	store := newMemStore()
	m := NewManager(store, zerolog.Nop())
	room := &models.Room{ID: uuid.New(), Kind: models.RoomPublic}
	ctx := context.Background()

	userSid, err := m.BindAsUser(ctx, room, "alice")
	if err != nil {
		t.Fatalf("BindAsUser: %v", err)
	}
	guestSid, err := m.BindAsGuest(ctx, room)
	if err != nil {
		t.Fatalf("BindAsGuest: %v", err)
	}

	if err := m.Release(ctx, room, "alice", "stale"); err != nil {
		t.Fatalf("Release stale: %v", err)
	}
	if store.users["alice"] != userSid {
		t.Fatalf("stale release cleared the live session")
	}

	_ = m.Release(ctx, room, "alice", userSid)
	_ = m.Release(ctx, room, "", guestSid)
	if _, ok := store.users["alice"]; ok {
		t.Fatalf("user session not cleared")
	}
	if store.guests[guestSid] {
		t.Fatalf("guest row not deleted")
	}
}

func TestRandomID(t *testing.T) {
	a, err := RandomID(DefaultLength)
	if err != nil {
		t.Fatalf("RandomID: %v", err)
	}
	if len(a) != DefaultLength {
		t.Fatalf("len=%d, want %d", len(a), DefaultLength)
	}
	if strings.Trim(a, idChars) != "" {
		t.Fatalf("id contains characters outside [A-Za-z0-9]: %q", a)
	}
	b, _ := RandomID(DefaultLength)
	if a == b {
		t.Fatalf("two draws are equal")
	}
}
