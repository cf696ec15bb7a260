package signaling

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const BackendInternal = "internal"

const (
	DefaultPingInterval        = 5 * time.Second
	DefaultMaxPingFailures     = 3
	DefaultFlushInterval       = 500 * time.Millisecond
	DefaultRoomRefreshInterval = 10 * time.Second
	DefaultPullInitialInterval = 500 * time.Millisecond
	DefaultPullMaxInterval     = 30 * time.Second
)

// Config configures a signaling client. Zero durations take the defaults.
type Config struct {
	Backend   string
	BaseURL   string
	AuthToken string // empty joins as a guest

	HTTPClient *http.Client
	Logger     zerolog.Logger

	PingInterval        time.Duration
	MaxPingFailures     int
	FlushInterval       time.Duration
	RoomRefreshInterval time.Duration
	PullInitialInterval time.Duration
	PullMaxInterval     time.Duration
}

func (c Config) withDefaults() Config {
	if c.Backend == "" {
		c.Backend = BackendInternal
	}
	if c.HTTPClient == nil {
		// must outlive the server's long-poll
		c.HTTPClient = &http.Client{Timeout: 45 * time.Second}
	}
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.MaxPingFailures <= 0 {
		c.MaxPingFailures = DefaultMaxPingFailures
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.RoomRefreshInterval <= 0 {
		c.RoomRefreshInterval = DefaultRoomRefreshInterval
	}
	if c.PullInitialInterval <= 0 {
		c.PullInitialInterval = DefaultPullInitialInterval
	}
	if c.PullMaxInterval <= 0 {
		c.PullMaxInterval = DefaultPullMaxInterval
	}
	return c
}
