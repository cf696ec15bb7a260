package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/thereayou/talk-signaling/internal/config"
	"github.com/thereayou/talk-signaling/internal/database"
	"github.com/thereayou/talk-signaling/internal/events"
	"github.com/thereayou/talk-signaling/internal/handlers"
	"github.com/thereayou/talk-signaling/internal/metrics"
	"github.com/thereayou/talk-signaling/internal/middleware"
	"github.com/thereayou/talk-signaling/internal/presence"
	"github.com/thereayou/talk-signaling/internal/relay"
	"github.com/thereayou/talk-signaling/internal/session"
	"github.com/thereayou/talk-signaling/pkg/auth"
)

type Server struct {
	Config     *config.Config
	Log        zerolog.Logger
	Router     *gin.Engine
	DB         *database.Database
	Redis      *redis.Client
	JWTManager *auth.JWTManager
	Sweeper    *presence.Sweeper

	AuthH      *handlers.AuthHandler
	UserH      *handlers.UserHandler
	CallH      *handlers.CallHandler
	SignalingH *handlers.SignalingHandler
	RoomH      *handlers.RoomHandler
	ChatH      *handlers.ChatHandler
}

func NewServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	gdb, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database connect failed: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connect failed: %w", err)
	}

	bus := events.NewLocalBus(logger)
	subscribeEventHooks(bus, logger)

	db := database.NewDatabase(gdb,
		database.WithEvents(bus),
		database.WithTokenEntropy(cfg.TokenEntropy),
	)

	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	sessions := session.NewManager(db, logger,
		session.WithLength(cfg.SessionIDLength),
		session.WithMaxAttempts(cfg.SessionMaxAttempts),
	)
	tracker := presence.NewTracker(db, logger,
		presence.WithGuestMaxAge(cfg.GuestMaxAge),
		presence.WithActiveWindow(cfg.ActiveWindow),
	)
	mailbox := relay.NewMailbox(rdb, cfg.MailboxTTL, logger)
	relaySvc := relay.NewService(mailbox, db, tracker, cfg.PullTimeout, logger)

	s := &Server{
		Config:     cfg,
		Log:        logger,
		DB:         db,
		Redis:      rdb,
		JWTManager: jwtMgr,
		Sweeper:    presence.NewSweeper(tracker, cfg.SweepInterval),

		AuthH:      handlers.NewAuthHandler(db, jwtMgr, rdb, logger),
		UserH:      handlers.NewUserHandler(db),
		CallH:      handlers.NewCallHandler(db, sessions, tracker, logger),
		SignalingH: handlers.NewSignalingHandler(db, relaySvc, logger),
		RoomH:      handlers.NewRoomHandler(db, tracker, logger),
		ChatH:      handlers.NewChatHandler(db, logger),
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(logger), middleware.Metrics(), middleware.OriginFilter(cfg.AllowedOrigins))
	APIEndpoints(router, s)
	s.Router = router

	return s, nil
}

// Close releases the database and Redis connections.
func (s *Server) Close() {
	if err := s.Redis.Close(); err != nil {
		s.Log.Warn().Err(err).Msg("closing redis")
	}
	if err := s.DB.Close(); err != nil {
		s.Log.Warn().Err(err).Msg("closing database")
	}
}

// WriteTimeout leaves room for a full long-poll.
func (s *Server) WriteTimeout() time.Duration {
	return s.Config.PullTimeout + 15*time.Second
}

// subscribeEventHooks wires the room lifecycle bus to logs and metrics.
func subscribeEventHooks(bus *events.LocalBus, logger zerolog.Logger) {
	log := logger.With().Str("component", "events").Logger()

	bus.SubscribeAll(func(_ context.Context, ev events.Event) {
		metrics.EventsPublished.WithLabelValues(string(ev.Kind)).Inc()
	})
	bus.SubscribeAll(func(_ context.Context, ev events.Event) {
		log.Debug().
			Str("kind", string(ev.Kind)).
			Str("room", ev.RoomToken).
			Interface("data", ev.Data).
			Msg("room event")
	})
	bus.Subscribe(events.RoomPostDelete, func(_ context.Context, ev events.Event) {
		log.Info().Str("room", ev.RoomToken).Msg("room deleted")
	})
}
