package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/thereayou/talk-signaling/internal/models"
)

func (d *Database) GetParticipant(ctx context.Context, roomID uuid.UUID, userID string) (*models.Participant, error) {
	var p models.Participant
	err := d.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&p).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetParticipantBySession finds the single row currently holding sid.
func (d *Database) GetParticipantBySession(ctx context.Context, sid string) (*models.Participant, error) {
	if sid == "" {
		return nil, ErrParticipantNotFound
	}

	var p models.Participant
	if err := d.db.WithContext(ctx).First(&p, "session_id = ?", sid).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return &p, nil
}

// TouchParticipant sets last_ping on the row matching room, user and session.
// It returns the number of rows updated; zero means the session moved on.
func (d *Database) TouchParticipant(ctx context.Context, roomID uuid.UUID, userID, sid string, ts int64) (int64, error) {
	res := d.db.WithContext(ctx).Model(&models.Participant{}).
		Where("room_id = ? AND user_id = ? AND session_id = ?", roomID, userID, sid).
		Update("last_ping", ts)
	return res.RowsAffected, res.Error
}

// ListParticipants returns the room's rows in insertion order. When since is
// positive only rows that pinged strictly after it are returned.
func (d *Database) ListParticipants(ctx context.Context, roomID uuid.UUID, since int64) ([]models.Participant, error) {
	var participants []models.Participant
	q := d.db.WithContext(ctx).Where("room_id = ?", roomID)
	if since > 0 {
		q = q.Where("last_ping > ?", since)
	}
	err := q.Order("id ASC").Find(&participants).Error
	return participants, err
}

func (d *Database) CountParticipants(ctx context.Context, roomID uuid.UUID, since int64) (int64, error) {
	var n int64
	q := d.db.WithContext(ctx).Model(&models.Participant{}).Where("room_id = ?", roomID)
	if since > 0 {
		q = q.Where("last_ping > ?", since)
	}
	err := q.Count(&n).Error
	return n, err
}

// DeleteStaleGuests removes guest rows of the room whose last ping is at or
// before cutoff. Named users are never touched.
func (d *Database) DeleteStaleGuests(ctx context.Context, roomID uuid.UUID, cutoff int64) (int64, error) {
	res := d.db.WithContext(ctx).
		Where("room_id = ? AND user_id = '' AND last_ping <= ?", roomID, cutoff).
		Delete(&models.Participant{})
	return res.RowsAffected, res.Error
}

func (d *Database) RoomIDsWithGuests(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := d.db.WithContext(ctx).Model(&models.Participant{}).
		Where("user_id = ''").
		Distinct().
		Pluck("room_id", &ids).Error
	return ids, err
}
