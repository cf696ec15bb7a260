package models

import (
	"github.com/google/uuid"
)

// Role of a participant inside a room.
type Role string

const (
	RoleOwner      Role = "owner"
	RoleModerator  Role = "moderator"
	RoleUser       Role = "user"
	RoleGuest      Role = "guest"
	RoleSelfJoined Role = "self_joined"
)

// Participant is a (room, user-or-guest) membership row. UserID is empty for
// guests. SessionID is NULL while the participant is not connected; the
// unique index makes a session id globally unique across all rooms.
type Participant struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_participants_room_user,where:user_id <> ''"`
	UserID    string    `gorm:"size:64;not null;default:'';index;uniqueIndex:idx_participants_room_user,where:user_id <> ''"`
	Role      Role      `gorm:"size:16;not null"`
	SessionID *string   `gorm:"size:255;uniqueIndex"`
	LastPing  int64     `gorm:"not null;default:0"`
}

func (p *Participant) IsGuest() bool {
	return p.UserID == ""
}

// Session returns the bound session id or "" when not connected.
func (p *Participant) Session() string {
	if p.SessionID == nil {
		return ""
	}
	return *p.SessionID
}
