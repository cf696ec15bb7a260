package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/thereayou/talk-signaling/internal/models"
	"gorm.io/gorm"
)

// AssignUserSession binds sid to the user's row in room and clears the user's
// session in every other room, all in one transaction. Users without a row
// may self join public rooms; anywhere else that is ErrRoomNotFound.
// A taken sid surfaces as ErrDuplicateSession.
func (d *Database) AssignUserSession(ctx context.Context, room *models.Room, userID, sid string) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Participant{}).
			Where("user_id = ? AND room_id <> ? AND session_id IS NOT NULL", userID, room.ID).
			Update("session_id", gorm.Expr("NULL")).Error
		if err != nil {
			return err
		}

		res := tx.Model(&models.Participant{}).
			Where("room_id = ? AND user_id = ?", room.ID, userID).
			Update("session_id", sid)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}

		if room.Kind != models.RoomPublic {
			return ErrRoomNotFound
		}
		return tx.Create(&models.Participant{
			RoomID:    room.ID,
			UserID:    userID,
			Role:      models.RoleSelfJoined,
			SessionID: &sid,
		}).Error
	})
	if isDuplicate(err) {
		return ErrDuplicateSession
	}
	return err
}

// InsertGuest creates a fresh guest row holding sid. The row counts as
// pinged now so a sweep cannot remove it before its first ping.
func (d *Database) InsertGuest(ctx context.Context, room *models.Room, sid string) (*models.Participant, error) {
	guest := &models.Participant{
		RoomID:    room.ID,
		Role:      models.RoleGuest,
		SessionID: &sid,
		LastPing:  d.now().Unix(),
	}
	if err := d.db.WithContext(ctx).Create(guest).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicateSession
		}
		return nil, err
	}
	return guest, nil
}

// ClearUserSession disconnects the user's row only while it still holds sid.
func (d *Database) ClearUserSession(ctx context.Context, roomID uuid.UUID, userID, sid string) error {
	return d.db.WithContext(ctx).Model(&models.Participant{}).
		Where("room_id = ? AND user_id = ? AND session_id = ?", roomID, userID, sid).
		Update("session_id", gorm.Expr("NULL")).Error
}

func (d *Database) DeleteGuestSession(ctx context.Context, roomID uuid.UUID, sid string) error {
	return d.db.WithContext(ctx).
		Where("room_id = ? AND user_id = '' AND session_id = ?", roomID, sid).
		Delete(&models.Participant{}).Error
}
