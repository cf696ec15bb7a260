package signaling

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

// fakeServer implements Transport and CallAPI in memory.
type fakeServer struct {
	mu sync.Mutex

	posted  [][]Envelope
	postErr error
	// postGate, when set, blocks PostMessages until it receives a value.
	// postEntered is signalled once the batch has been handed over.
	postGate    chan error
	postEntered chan struct{}

	pulls   chan []PullItem
	pullErr []error

	joinSid string
	// joinGate, when set, blocks Join until closed; joinEntered is
	// signalled first.
	joinGate    chan struct{}
	joinEntered chan struct{}

	peers    []Peer
	pingErrs []error
	pings    int
	leaves   int
	rooms    []Room
}

var errTransient = errors.New("transient")

func (f *fakeServer) PostMessages(ctx context.Context, _ string, batch []Envelope) error {
	if f.postEntered != nil {
		f.postEntered <- struct{}{}
	}
	if f.postGate != nil {
		select {
		case err := <-f.postGate:
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return f.postErr
	}
	f.posted = append(f.posted, batch)
	return nil
}

func (f *fakeServer) PullMessages(ctx context.Context, _ string) ([]PullItem, error) {
	f.mu.Lock()
	if len(f.pullErr) > 0 {
		err := f.pullErr[0]
		f.pullErr = f.pullErr[1:]
		f.mu.Unlock()
		return nil, err
	}
	f.mu.Unlock()

	if f.pulls == nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	select {
	case items := <-f.pulls:
		return items, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeServer) Join(ctx context.Context, _ string) (string, error) {
	if f.joinEntered != nil {
		f.joinEntered <- struct{}{}
	}
	if f.joinGate != nil {
		select {
		case <-f.joinGate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.joinSid, nil
}

func (f *fakeServer) Leave(context.Context, string, string) error {
	f.mu.Lock()
	f.leaves++
	f.mu.Unlock()
	return nil
}

func (f *fakeServer) Peers(context.Context, string) ([]Peer, error) {
	return f.peers, nil
}

func (f *fakeServer) Ping(context.Context, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	if len(f.pingErrs) == 0 {
		return nil
	}
	err := f.pingErrs[0]
	f.pingErrs = f.pingErrs[1:]
	return err
}

func (f *fakeServer) Rooms(context.Context) ([]Room, error) {
	return f.rooms, nil
}

func (f *fakeServer) counts() (pings, leaves int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings, f.leaves
}

var errNotFound = &APIError{Op: "ping", Status: http.StatusNotFound}
