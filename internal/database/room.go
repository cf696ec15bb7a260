package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/talk-signaling/internal/events"
	"github.com/thereayou/talk-signaling/internal/models"
	"gorm.io/gorm"
)

// CreateRoom stores a new room with a fresh token. ownerIDs become owner
// participants in the same transaction.
func (d *Database) CreateRoom(ctx context.Context, kind models.RoomKind, name string, ownerIDs ...string) (*models.Room, error) {
	if !kind.Valid() {
		return nil, ErrInvalidRoomKind
	}
	ownerIDs = uniqueNonEmpty(ownerIDs)

	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := generateToken(d.tokenEntropy)
		if err != nil {
			return nil, err
		}

		room := &models.Room{
			Kind:      kind,
			Token:     token,
			Name:      name,
			CreatedAt: time.Now(),
		}

		err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(room).Error; err != nil {
				return err
			}
			for _, userID := range ownerIDs {
				owner := &models.Participant{RoomID: room.ID, UserID: userID, Role: models.RoleOwner}
				if err := tx.Create(owner).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if isDuplicate(err) {
			continue
		}
		if err != nil {
			return nil, err
		}

		d.bus.Publish(ctx, roomEvent(events.RoomCreated, room, map[string]any{"owners": ownerIDs}))
		return room, nil
	}

	return nil, ErrDuplicateToken
}

func (d *Database) GetRoomByToken(ctx context.Context, token string) (*models.Room, error) {
	var room models.Room
	if err := d.db.WithContext(ctx).First(&room, "token = ?", token).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

func (d *Database) GetRoomByID(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room
	if err := d.db.WithContext(ctx).First(&room, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// GetRoomForParticipant resolves token for a caller. Public rooms are open to
// everyone, guests included; other rooms need a participant row for userID.
// Every miss is reported as ErrRoomNotFound.
func (d *Database) GetRoomForParticipant(ctx context.Context, token, userID string) (*models.Room, error) {
	room, err := d.GetRoomByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if room.Kind == models.RoomPublic {
		return room, nil
	}
	if userID == "" {
		return nil, ErrRoomNotFound
	}

	if _, err := d.GetParticipant(ctx, room.ID, userID); err != nil {
		if err == ErrParticipantNotFound {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

func (d *Database) GetRoomsForUser(ctx context.Context, userID string) ([]models.Room, error) {
	var rooms []models.Room
	err := d.db.WithContext(ctx).
		Joins("JOIN participants p ON p.room_id = rooms.id").
		Where("p.user_id = ?", userID).
		Order("rooms.created_at ASC").
		Find(&rooms).Error
	return rooms, err
}

// DeleteRoom removes the room together with its participants and chat lines.
func (d *Database) DeleteRoom(ctx context.Context, room *models.Room) error {
	d.bus.Publish(ctx, roomEvent(events.RoomPreDelete, room, nil))

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ChatMessage{}, "room_id = ?", room.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Participant{}, "room_id = ?", room.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Room{}, "id = ?", room.ID).Error
	})
	if err != nil {
		return err
	}

	d.bus.Publish(ctx, roomEvent(events.RoomPostDelete, room, nil))
	return nil
}

// SetName renames group and public rooms. It reports false for one-to-one
// rooms and leaves the name untouched.
func (d *Database) SetName(ctx context.Context, room *models.Room, newName string) (bool, error) {
	oldName := room.Name
	if newName == oldName {
		return true, nil
	}
	if room.Kind == models.RoomOneToOne {
		return false, nil
	}

	args := map[string]any{"newName": newName, "oldName": oldName}
	d.bus.Publish(ctx, roomEvent(events.RoomPreSetName, room, args))

	err := d.db.WithContext(ctx).Model(&models.Room{}).
		Where("id = ?", room.ID).
		Update("name", newName).Error
	if err != nil {
		return false, err
	}
	room.Name = newName

	d.bus.Publish(ctx, roomEvent(events.RoomPostSetName, room, args))
	return true, nil
}

// ChangeType switches a room between group and public. Leaving public kicks
// guests and self-joined users. One-to-one rooms and other target kinds are
// rejected with false.
func (d *Database) ChangeType(ctx context.Context, room *models.Room, newKind models.RoomKind) (bool, error) {
	if newKind == room.Kind {
		return true, nil
	}
	if room.Kind == models.RoomOneToOne {
		return false, nil
	}
	if newKind != models.RoomGroup && newKind != models.RoomPublic {
		return false, nil
	}

	oldKind := room.Kind
	args := map[string]any{"newType": string(newKind), "oldType": string(oldKind)}
	d.bus.Publish(ctx, roomEvent(events.RoomPreChangeType, room, args))

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Room{}).
			Where("id = ?", room.ID).
			Update("kind", newKind).Error
		if err != nil {
			return err
		}

		if oldKind == models.RoomPublic {
			return tx.
				Where("room_id = ? AND role IN ?", room.ID, []models.Role{models.RoleGuest, models.RoleSelfJoined}).
				Delete(&models.Participant{}).Error
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	room.Kind = newKind

	d.bus.Publish(ctx, roomEvent(events.RoomPostChangeType, room, args))
	return true, nil
}

// AddParticipants adds named users with the given role and no session.
func (d *Database) AddParticipants(ctx context.Context, room *models.Room, userIDs []string, role models.Role) error {
	userIDs = uniqueNonEmpty(userIDs)
	if len(userIDs) == 0 {
		return nil
	}

	args := map[string]any{"userIds": userIDs, "role": string(role)}
	d.bus.Publish(ctx, roomEvent(events.ParticipantsPreAdd, room, args))

	rows := make([]models.Participant, 0, len(userIDs))
	for _, userID := range userIDs {
		rows = append(rows, models.Participant{RoomID: room.ID, UserID: userID, Role: role})
	}
	if err := d.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return err
	}

	d.bus.Publish(ctx, roomEvent(events.ParticipantsPostAdd, room, args))
	return nil
}

func (d *Database) SetParticipantRole(ctx context.Context, room *models.Room, userID string, role models.Role) error {
	res := d.db.WithContext(ctx).Model(&models.Participant{}).
		Where("room_id = ? AND user_id = ?", room.ID, userID).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

func (d *Database) RemoveUser(ctx context.Context, room *models.Room, userID string) error {
	args := map[string]any{"userId": userID}
	d.bus.Publish(ctx, roomEvent(events.ParticipantPreRemove, room, args))

	err := d.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", room.ID, userID).
		Delete(&models.Participant{}).Error
	if err != nil {
		return err
	}

	d.bus.Publish(ctx, roomEvent(events.ParticipantPostRemove, room, args))
	return nil
}

func roomEvent(kind events.Kind, room *models.Room, data map[string]any) events.Event {
	return events.Event{
		Kind:      kind,
		RoomID:    room.ID.String(),
		RoomToken: room.Token,
		Data:      data,
	}
}

func uniqueNonEmpty(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
