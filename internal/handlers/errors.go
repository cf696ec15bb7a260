package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/thereayou/talk-signaling/internal/database"
)

// respondStoreError maps store errors onto the JSON error bodies clients
// expect. Unknown errors are logged and reported as 500.
func respondStoreError(c *gin.Context, log zerolog.Logger, err error, what string) {
	switch {
	case errors.Is(err, database.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
	case errors.Is(err, database.ErrParticipantNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "participant not found"})
	case errors.Is(err, database.ErrInvalidRoomKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room type"})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg(what)
		c.JSON(http.StatusInternalServerError, gin.H{"error": what})
	}
}
