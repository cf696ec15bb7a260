package dto

import (
	"time"

	"github.com/thereayou/talk-signaling/internal/models"
)

type CreateRoomRequest struct {
	Type         string   `json:"type" binding:"required,oneof=one2one group public"`
	Name         string   `json:"name" binding:"max=200"`
	Participants []string `json:"participants"`
}

type RenameRoomRequest struct {
	Name string `json:"name" binding:"max=200"`
}

type ChangeTypeRequest struct {
	Type string `json:"type" binding:"required"`
}

type AddParticipantsRequest struct {
	UserIDs []string `json:"userIds" binding:"required,min=1"`
}

type SetRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=moderator user"`
}

type RoomResponse struct {
	Token        string                `json:"token"`
	Name         string                `json:"name"`
	Type         string                `json:"type"`
	CreatedAt    time.Time             `json:"createdAt"`
	InCall       int64                 `json:"inCall"`
	Participants []ParticipantResponse `json:"participants,omitempty"`
}

type ParticipantResponse struct {
	UserID   string `json:"userId"`
	Role     string `json:"role"`
	InCall   bool   `json:"inCall"`
	LastPing int64  `json:"lastPing"`
}

func RoomFrom(room *models.Room, inCall int64) RoomResponse {
	return RoomResponse{
		Token:     room.Token,
		Name:      room.Name,
		Type:      string(room.Kind),
		CreatedAt: room.CreatedAt,
		InCall:    inCall,
	}
}

func ParticipantsFrom(participants []models.Participant) []ParticipantResponse {
	out := make([]ParticipantResponse, 0, len(participants))
	for _, p := range participants {
		out = append(out, ParticipantResponse{
			UserID:   p.UserID,
			Role:     string(p.Role),
			InCall:   p.Session() != "",
			LastPing: p.LastPing,
		})
	}
	return out
}
