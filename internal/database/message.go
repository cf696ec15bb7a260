package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/thereayou/talk-signaling/internal/models"
	"gorm.io/gorm/clause"
)

const maxChatPage = 200

func (d *Database) SaveChatMessage(ctx context.Context, message *models.ChatMessage) error {
	return d.db.WithContext(ctx).Omit(clause.Associations).Create(message).Error
}

// GetChatMessages returns lines posted after afterID, oldest first.
func (d *Database) GetChatMessages(ctx context.Context, roomID uuid.UUID, afterID uint, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 || limit > maxChatPage {
		limit = maxChatPage
	}

	var messages []models.ChatMessage
	err := d.db.WithContext(ctx).
		Where("room_id = ? AND id > ?", roomID, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}
