package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"time"
)

// RoomKind is stored as text and guarded by a check constraint.
type RoomKind string

const (
	RoomOneToOne RoomKind = "one2one"
	RoomGroup    RoomKind = "group"
	RoomPublic   RoomKind = "public"
)

func (k RoomKind) Valid() bool {
	switch k {
	case RoomOneToOne, RoomGroup, RoomPublic:
		return true
	}
	return false
}

type Room struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind      RoomKind  `gorm:"not null;check:kind IN ('one2one','group','public')"`
	Token     string    `gorm:"size:64;uniqueIndex;not null"`
	Name      string    `gorm:"not null;default:''"`
	CreatedAt time.Time

	// Associations
	Participants []Participant `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
}

func (r *Room) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
