package models

import (
	"github.com/google/uuid"
	"time"
)

const (
	ActorUser  = "user"
	ActorGuest = "guest"
)

// ChatMessage is a plain chat line posted to a room. The auto increment ID
// doubles as the read cursor.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    uuid.UUID `gorm:"type:uuid;not null;index"`
	ActorType string    `gorm:"size:16;not null"`
	ActorID   string    `gorm:"size:255;not null"`
	Message   string    `gorm:"not null"`
	CreatedAt time.Time

	// Associations
	Room Room `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
}
