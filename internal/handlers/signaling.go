package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/thereayou/talk-signaling/internal/database"
	"github.com/thereayou/talk-signaling/internal/handlers/dto"
	"github.com/thereayou/talk-signaling/internal/middleware"
	"github.com/thereayou/talk-signaling/internal/models"
	"github.com/thereayou/talk-signaling/internal/relay"
)

const (
	pullTypeUsers   = "usersInRoom"
	pullTypeMessage = "message"
)

type SignalingHandler struct {
	db    *database.Database
	relay *relay.Service
	log   zerolog.Logger
}

func NewSignalingHandler(db *database.Database, relaySvc *relay.Service, logger zerolog.Logger) *SignalingHandler {
	return &SignalingHandler{
		db:    db,
		relay: relaySvc,
		log:   logger.With().Str("handler", "signaling").Logger(),
	}
}

// caller resolves the X-Session-Id header; it writes the 404 itself.
func (h *SignalingHandler) caller(c *gin.Context) (*models.Participant, bool) {
	p, err := h.db.GetParticipantBySession(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return p, true
}

// Post relays a batch of outgoing signaling messages.
func (h *SignalingHandler) Post(c *gin.Context) {
	sender, ok := h.caller(c)
	if !ok {
		return
	}

	var req dto.SignalingPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	envelopes, err := req.Envelopes()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	delivered, err := h.relay.Post(c.Request.Context(), sender, envelopes)
	if err != nil {
		h.log.Error().Err(err).Msg("relay post failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "relay unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"delivered": delivered})
}

// Pull long-polls the caller's mailbox. The roster always comes first.
func (h *SignalingHandler) Pull(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	batch, err := h.relay.Pull(c.Request.Context(), caller)
	if err != nil {
		if c.Request.Context().Err() != nil {
			return
		}
		h.log.Error().Err(err).Msg("relay pull failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "relay unavailable"})
		return
	}

	items := make([]dto.PullItem, 0, len(batch.Messages)+1)
	items = append(items, dto.PullItem{Type: pullTypeUsers, Data: dto.PeersFrom(batch.Users)})
	for _, d := range batch.Messages {
		items = append(items, dto.PullItem{Type: pullTypeMessage, From: d.From, Data: d.Data})
	}

	c.JSON(http.StatusOK, dto.PullResponse{Data: items})
}
