package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/thereayou/talk-signaling/internal/database"
	"github.com/thereayou/talk-signaling/internal/handlers/dto"
	"github.com/thereayou/talk-signaling/internal/middleware"
	"github.com/thereayou/talk-signaling/internal/presence"
	"github.com/thereayou/talk-signaling/internal/session"
)

// CallHandler serves join, leave, peer listing and ping for a room's call.
type CallHandler struct {
	db       *database.Database
	sessions *session.Manager
	presence *presence.Tracker
	log      zerolog.Logger
}

func NewCallHandler(db *database.Database, sessions *session.Manager, tracker *presence.Tracker, logger zerolog.Logger) *CallHandler {
	return &CallHandler{
		db:       db,
		sessions: sessions,
		presence: tracker,
		log:      logger.With().Str("handler", "call").Logger(),
	}
}

// Join binds a new session for the caller. Unknown or inaccessible rooms are
// a 404 and leave nothing behind.
func (h *CallHandler) Join(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	room, err := h.db.GetRoomForParticipant(ctx, c.Param("token"), userID)
	if err != nil {
		respondStoreError(c, h.log, err, "failed to join call")
		return
	}

	var sid string
	if userID != "" {
		sid, err = h.sessions.BindAsUser(ctx, room, userID)
	} else {
		sid, err = h.sessions.BindAsGuest(ctx, room)
	}
	if err != nil {
		respondStoreError(c, h.log, err, "failed to join call")
		return
	}

	if err := h.presence.Ping(ctx, room.ID, userID, sid, 0); err != nil {
		h.log.Warn().Err(err).Msg("initial ping failed")
	}

	h.log.Info().Str("room", room.Token).Bool("guest", userID == "").Msg("joined call")
	c.JSON(http.StatusOK, dto.JoinResponse{SessionID: sid})
}

// Peers lists participants currently in the call.
func (h *CallHandler) Peers(c *gin.Context) {
	ctx := c.Request.Context()

	room, err := h.db.GetRoomForParticipant(ctx, c.Param("token"), middleware.UserID(c))
	if err != nil {
		respondStoreError(c, h.log, err, "failed to list peers")
		return
	}

	if _, err := h.presence.PruneStaleGuests(ctx, room.ID, 0); err != nil {
		h.log.Warn().Err(err).Msg("guest pruning failed")
	}

	snap, err := h.presence.ListActive(ctx, room.ID, h.presence.ActiveSince())
	if err != nil {
		respondStoreError(c, h.log, err, "failed to list peers")
		return
	}

	c.JSON(http.StatusOK, dto.PeersFrom(snap.All()))
}

// Ping refreshes the caller's presence. A session that is not bound in this
// room is a 404, which tells the client its call is over.
func (h *CallHandler) Ping(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	room, err := h.db.GetRoomForParticipant(ctx, c.Param("token"), userID)
	if err != nil {
		respondStoreError(c, h.log, err, "failed to ping")
		return
	}

	sid := middleware.SessionID(c)
	p, err := h.db.GetParticipantBySession(ctx, sid)
	if err != nil || p.RoomID != room.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	if err := h.presence.Ping(ctx, room.ID, p.UserID, sid, 0); err != nil {
		respondStoreError(c, h.log, err, "failed to ping")
		return
	}
	c.Status(http.StatusOK)
}

// Leave releases the caller's session. It always answers 200 so clients can
// leave unconditionally.
func (h *CallHandler) Leave(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	room, err := h.db.GetRoomByToken(ctx, c.Param("token"))
	if err != nil {
		c.Status(http.StatusOK)
		return
	}

	if err := h.sessions.Release(ctx, room, userID, middleware.SessionID(c)); err != nil {
		h.log.Warn().Err(err).Str("room", room.Token).Msg("releasing session failed")
	}
	c.Status(http.StatusOK)
}
