package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/thereayou/talk-signaling/internal/database"
	"github.com/thereayou/talk-signaling/internal/handlers/dto"
	"github.com/thereayou/talk-signaling/internal/middleware"
	"github.com/thereayou/talk-signaling/internal/models"
	"github.com/thereayou/talk-signaling/internal/presence"
)

type RoomHandler struct {
	db       *database.Database
	presence *presence.Tracker
	log      zerolog.Logger
}

func NewRoomHandler(db *database.Database, tracker *presence.Tracker, logger zerolog.Logger) *RoomHandler {
	return &RoomHandler{
		db:       db,
		presence: tracker,
		log:      logger.With().Str("handler", "room").Logger(),
	}
}

// CreateRoom creates a room owned by the caller. One-to-one rooms need
// exactly one other user, who becomes a second owner.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID := middleware.UserID(c)

	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind := models.RoomKind(req.Type)
	var others []string
	for _, id := range req.Participants {
		if id != "" && id != userID {
			others = append(others, id)
		}
	}

	owners := []string{userID}
	if kind == models.RoomOneToOne {
		if len(others) != 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "one2one rooms need exactly one other participant"})
			return
		}
		owners = append(owners, others[0])
		others = nil
	}

	ctx := c.Request.Context()
	room, err := h.db.CreateRoom(ctx, kind, req.Name, owners...)
	if err != nil {
		respondStoreError(c, h.log, err, "failed to create room")
		return
	}

	if err := h.db.AddParticipants(ctx, room, others, models.RoleUser); err != nil {
		respondStoreError(c, h.log, err, "failed to add participants")
		return
	}

	c.JSON(http.StatusCreated, dto.RoomFrom(room, 0))
}

// GetMyRooms lists the caller's rooms with how many people are in each call.
func (h *RoomHandler) GetMyRooms(c *gin.Context) {
	ctx := c.Request.Context()

	rooms, err := h.db.GetRoomsForUser(ctx, middleware.UserID(c))
	if err != nil {
		respondStoreError(c, h.log, err, "failed to get rooms")
		return
	}

	since := h.presence.ActiveSince()
	out := make([]dto.RoomResponse, 0, len(rooms))
	for i := range rooms {
		inCall, err := h.presence.Count(ctx, rooms[i].ID, since)
		if err != nil {
			respondStoreError(c, h.log, err, "failed to get rooms")
			return
		}
		out = append(out, dto.RoomFrom(&rooms[i], inCall))
	}

	c.JSON(http.StatusOK, gin.H{"rooms": out})
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	ctx := c.Request.Context()

	room, err := h.db.GetRoomForParticipant(ctx, c.Param("token"), middleware.UserID(c))
	if err != nil {
		respondStoreError(c, h.log, err, "failed to get room")
		return
	}

	participants, err := h.db.ListParticipants(ctx, room.ID, 0)
	if err != nil {
		respondStoreError(c, h.log, err, "failed to get room")
		return
	}

	inCall, err := h.presence.Count(ctx, room.ID, h.presence.ActiveSince())
	if err != nil {
		respondStoreError(c, h.log, err, "failed to get room")
		return
	}

	resp := dto.RoomFrom(room, inCall)
	resp.Participants = dto.ParticipantsFrom(participants)
	c.JSON(http.StatusOK, resp)
}

func (h *RoomHandler) RenameRoom(c *gin.Context) {
	room, ok := h.roomAsModerator(c)
	if !ok {
		return
	}

	var req dto.RenameRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	changed, err := h.db.SetName(c.Request.Context(), room, req.Name)
	if err != nil {
		respondStoreError(c, h.log, err, "failed to rename room")
		return
	}
	if !changed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room cannot be renamed"})
		return
	}

	c.JSON(http.StatusOK, dto.RoomFrom(room, 0))
}

func (h *RoomHandler) ChangeType(c *gin.Context) {
	room, ok := h.roomAsModerator(c)
	if !ok {
		return
	}

	var req dto.ChangeTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	changed, err := h.db.ChangeType(c.Request.Context(), room, models.RoomKind(req.Type))
	if err != nil {
		respondStoreError(c, h.log, err, "failed to change room type")
		return
	}
	if !changed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room type cannot be changed"})
		return
	}

	c.JSON(http.StatusOK, dto.RoomFrom(room, 0))
}

// DeleteRoom is reserved to owners.
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	room, caller, ok := h.roomAsMember(c)
	if !ok {
		return
	}
	if caller.Role != models.RoleOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "only owners can delete a room"})
		return
	}

	if err := h.db.DeleteRoom(c.Request.Context(), room); err != nil {
		respondStoreError(c, h.log, err, "failed to delete room")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "room deleted successfully"})
}

func (h *RoomHandler) AddParticipants(c *gin.Context) {
	room, ok := h.roomAsModerator(c)
	if !ok {
		return
	}
	if room.Kind == models.RoomOneToOne {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot add participants to a one2one room"})
		return
	}

	var req dto.AddParticipantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var fresh []string
	for _, id := range req.UserIDs {
		if _, err := h.db.GetParticipant(ctx, room.ID, id); err == nil {
			continue
		}
		fresh = append(fresh, id)
	}

	if err := h.db.AddParticipants(ctx, room, fresh, models.RoleUser); err != nil {
		respondStoreError(c, h.log, err, "failed to add participants")
		return
	}

	c.JSON(http.StatusOK, gin.H{"added": len(fresh)})
}

// RemoveParticipant lets moderators remove anyone and users remove
// themselves.
func (h *RoomHandler) RemoveParticipant(c *gin.Context) {
	room, caller, ok := h.roomAsMember(c)
	if !ok {
		return
	}

	target := c.Param("userId")
	if target != caller.UserID && !isModerator(caller) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return
	}
	if room.Kind == models.RoomOneToOne {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot leave a one2one room"})
		return
	}

	if err := h.db.RemoveUser(c.Request.Context(), room, target); err != nil {
		respondStoreError(c, h.log, err, "failed to remove participant")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "participant removed"})
}

func (h *RoomHandler) SetParticipantRole(c *gin.Context) {
	room, ok := h.roomAsModerator(c)
	if !ok {
		return
	}

	var req dto.SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	target, err := h.db.GetParticipant(ctx, room.ID, c.Param("userId"))
	if err != nil {
		respondStoreError(c, h.log, err, "failed to set role")
		return
	}
	if target.Role == models.RoleOwner {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner role cannot be changed"})
		return
	}

	if err := h.db.SetParticipantRole(ctx, room, target.UserID, models.Role(req.Role)); err != nil {
		respondStoreError(c, h.log, err, "failed to set role")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "role updated"})
}

// roomAsMember resolves the room and the caller's own row; non members see
// 404 like for unknown rooms.
func (h *RoomHandler) roomAsMember(c *gin.Context) (*models.Room, *models.Participant, bool) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	room, err := h.db.GetRoomByToken(ctx, c.Param("token"))
	if err != nil {
		respondStoreError(c, h.log, err, "failed to get room")
		return nil, nil, false
	}

	caller, err := h.db.GetParticipant(ctx, room.ID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return nil, nil, false
	}
	return room, caller, true
}

func (h *RoomHandler) roomAsModerator(c *gin.Context) (*models.Room, bool) {
	room, caller, ok := h.roomAsMember(c)
	if !ok {
		return nil, false
	}
	if !isModerator(caller) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return nil, false
	}
	return room, true
}

func isModerator(p *models.Participant) bool {
	return p.Role == models.RoleOwner || p.Role == models.RoleModerator
}
