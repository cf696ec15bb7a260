package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/thereayou/talk-signaling/internal/database"
	"github.com/thereayou/talk-signaling/internal/handlers/dto"
	"github.com/thereayou/talk-signaling/internal/middleware"
	"github.com/thereayou/talk-signaling/internal/models"
)

type ChatHandler struct {
	db  *database.Database
	log zerolog.Logger
}

func NewChatHandler(db *database.Database, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{db: db, log: logger.With().Str("handler", "chat").Logger()}
}

// SendMessage posts a chat line as the user, or as the guest session named
// in the X-Session-Id header.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	room, err := h.db.GetRoomForParticipant(ctx, c.Param("token"), userID)
	if err != nil {
		respondStoreError(c, h.log, err, "failed to send message")
		return
	}

	actorType, actorID := models.ActorUser, userID
	if userID == "" {
		sid := middleware.SessionID(c)
		p, err := h.db.GetParticipantBySession(ctx, sid)
		if err != nil || p.RoomID != room.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "join the call before chatting"})
			return
		}
		actorType, actorID = models.ActorGuest, sid
	}

	var req dto.ChatPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg := &models.ChatMessage{
		RoomID:    room.ID,
		ActorType: actorType,
		ActorID:   actorID,
		Message:   req.Message,
	}
	if err := h.db.SaveChatMessage(ctx, msg); err != nil {
		respondStoreError(c, h.log, err, "failed to save message")
		return
	}

	c.JSON(http.StatusCreated, dto.ChatMessageFrom(msg))
}

// GetMessages returns lines newer than lastKnownMessageId.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	ctx := c.Request.Context()

	room, err := h.db.GetRoomForParticipant(ctx, c.Param("token"), middleware.UserID(c))
	if err != nil {
		respondStoreError(c, h.log, err, "failed to get messages")
		return
	}

	var after uint64
	if v := c.Query("lastKnownMessageId"); v != "" {
		if after, err = strconv.ParseUint(v, 10, 64); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lastKnownMessageId"})
			return
		}
	}

	limit := 100
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	messages, err := h.db.GetChatMessages(ctx, room.ID, uint(after), limit)
	if err != nil {
		respondStoreError(c, h.log, err, "failed to get messages")
		return
	}

	out := make([]dto.ChatMessageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, dto.ChatMessageFrom(&messages[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": out,
		"has_more": len(messages) == limit,
	})
}
