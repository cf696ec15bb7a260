package dto

import (
	"time"

	"github.com/thereayou/talk-signaling/internal/models"
)

type ChatPostRequest struct {
	Message string `json:"message" binding:"required,max=32000"`
}

type ChatMessageResponse struct {
	ID        uint      `json:"id"`
	ActorType string    `json:"actorType"`
	ActorID   string    `json:"actorId"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

func ChatMessageFrom(m *models.ChatMessage) ChatMessageResponse {
	return ChatMessageResponse{
		ID:        m.ID,
		ActorType: m.ActorType,
		ActorID:   m.ActorID,
		Message:   m.Message,
		CreatedAt: m.CreatedAt,
	}
}
