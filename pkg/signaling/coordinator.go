package signaling

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type State int

const (
	StateIdle State = iota
	StateJoining
	StateInCall
	StateLeaving
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateJoining:
		return "joining"
	case StateInCall:
		return "in_call"
	case StateLeaving:
		return "leaving"
	}
	return "unknown"
}

var (
	ErrAlreadyInCall = errors.New("signaling: already in a call")
	// ErrJoinCancelled is returned by Join when Leave was called while the
	// join was still in flight. The server side session is released.
	ErrJoinCancelled = errors.New("signaling: join cancelled by leave")
)

// CallAPI is the call half of the server surface.
type CallAPI interface {
	Join(ctx context.Context, roomToken string) (string, error)
	Leave(ctx context.Context, roomToken, sid string) error
	Peers(ctx context.Context, roomToken string) ([]Peer, error)
	Ping(ctx context.Context, roomToken, sid string) error
	Rooms(ctx context.Context) ([]Room, error)
}

// Coordinator runs the call lifecycle: join, keep alive, leave.
type Coordinator struct {
	api    CallAPI
	relay  *Relay
	events *fanout
	log    zerolog.Logger

	pingInterval        time.Duration
	maxPingFailures     int
	roomRefreshInterval time.Duration

	mu           sync.Mutex
	state        State
	leavePending bool // Leave arrived while Joining
	token        string
	sid          string
	cancel       context.CancelFunc
	loops        sync.WaitGroup // pull and flush
	pinged       chan struct{}  // closed when the ping loop exits
}

func newCoordinator(api CallAPI, relay *Relay, events *fanout, cfg Config) *Coordinator {
	return &Coordinator{
		api:                 api,
		relay:               relay,
		events:              events,
		log:                 cfg.Logger.With().Str("component", "call").Logger(),
		pingInterval:        cfg.PingInterval,
		maxPingFailures:     cfg.MaxPingFailures,
		roomRefreshInterval: cfg.RoomRefreshInterval,
	}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the current session id, "" outside a call.
func (c *Coordinator) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sid
}

// Join enters the call of roomToken and returns the session id together with
// the peers this session has to contact.
func (c *Coordinator) Join(ctx context.Context, roomToken string) (string, PeerContactList, error) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return "", nil, ErrAlreadyInCall
	}
	c.state = StateJoining
	c.leavePending = false
	c.mu.Unlock()

	sid, err := c.api.Join(ctx, roomToken)
	if err != nil {
		c.setState(StateIdle)
		return "", nil, err
	}

	peers, err := c.api.Peers(ctx, roomToken)
	if err != nil {
		if lerr := c.api.Leave(context.Background(), roomToken, sid); lerr != nil {
			c.log.Warn().Err(lerr).Msg("leave after failed join")
		}
		c.setState(StateIdle)
		return "", nil, err
	}

	c.mu.Lock()
	if c.leavePending {
		c.state = StateIdle
		c.leavePending = false
		c.mu.Unlock()

		if err := c.api.Leave(ctx, roomToken, sid); err != nil {
			c.log.Warn().Err(err).Str("room", roomToken).Msg("leave after cancelled join")
		}
		return "", nil, ErrJoinCancelled
	}

	callCtx, cancel := context.WithCancel(context.Background())
	pinged := make(chan struct{})
	c.state = StateInCall
	c.token, c.sid = roomToken, sid
	c.cancel = cancel
	c.pinged = pinged
	c.mu.Unlock()

	c.relay.SetSession(sid)

	c.loops.Add(2)
	go func() {
		defer c.loops.Done()
		c.relay.runPullLoop(callCtx)
	}()
	go func() {
		defer c.loops.Done()
		c.relay.runFlushLoop(callCtx)
	}()
	go func() {
		defer close(pinged)
		c.pingLoop(callCtx, roomToken, sid)
	}()

	c.log.Info().Str("room", roomToken).Int("peers", len(peers)).Msg("joined call")
	return sid, PeerContacts(sid, peers), nil
}

// Leave ends the current call. Outstanding messages are dropped, not sent.
// During a Join it makes that Join fail with ErrJoinCancelled. Calling it
// outside a call does nothing.
func (c *Coordinator) Leave(ctx context.Context) error {
	return c.leave(ctx, false, "")
}

// LeaveCall leaves only if roomToken is the current call.
func (c *Coordinator) LeaveCall(ctx context.Context, roomToken string) error {
	c.mu.Lock()
	current := c.token
	c.mu.Unlock()
	if current != roomToken {
		return nil
	}
	return c.leave(ctx, false, "")
}

func (c *Coordinator) leave(ctx context.Context, fromPing bool, reason string) error {
	c.mu.Lock()
	if c.state == StateJoining && !fromPing {
		// Join finishes the leave once the server has answered
		c.leavePending = true
		c.mu.Unlock()
		return nil
	}
	if c.state != StateInCall {
		c.mu.Unlock()
		return nil
	}
	c.state = StateLeaving
	token, sid := c.token, c.sid
	cancel, pinged := c.cancel, c.pinged
	c.mu.Unlock()

	cancel()
	c.loops.Wait()
	if !fromPing {
		<-pinged
	}

	c.relay.Reset()
	c.relay.SetSession("")

	err := c.api.Leave(ctx, token, sid)
	if err != nil {
		c.log.Warn().Err(err).Str("room", token).Msg("server leave failed")
	}

	c.mu.Lock()
	c.state = StateIdle
	c.token, c.sid = "", ""
	c.cancel, c.pinged = nil, nil
	c.mu.Unlock()

	if fromPing {
		c.events.publish(Event{Kind: EventCallLeft, Reason: reason})
	}
	c.log.Info().Str("room", token).Msg("left call")
	return err
}

// pingLoop keeps the session alive. Up to maxPingFailures consecutive
// failures are tolerated; the next one, or any 404, ends the call.
func (c *Coordinator) pingLoop(ctx context.Context, roomToken, sid string) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		err := c.api.Ping(ctx, roomToken, sid)
		if err == nil {
			failures = 0
			continue
		}
		if ctx.Err() != nil {
			return
		}

		if !IsNotFound(err) && failures < c.maxPingFailures {
			failures++
			c.log.Warn().Err(err).Int("failures", failures).Msg("ping failed")
			continue
		}

		reason := "ping failed"
		if IsNotFound(err) {
			reason = "session gone"
		}
		c.log.Warn().Err(err).Str("reason", reason).Msg("forcing leave")
		_ = c.leave(context.Background(), true, reason)
		return
	}
}

// RunRoomRefresh publishes the user's room list every roomRefreshInterval
// until ctx is done.
func (c *Coordinator) RunRoomRefresh(ctx context.Context) {
	ticker := time.NewTicker(c.roomRefreshInterval)
	defer ticker.Stop()

	for {
		c.refreshRooms(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Coordinator) refreshRooms(ctx context.Context) {
	rooms, err := c.api.Rooms(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Warn().Err(err).Msg("room refresh failed")
		}
		return
	}
	c.events.publish(Event{Kind: EventRooms, Rooms: rooms})
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
