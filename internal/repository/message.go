package repository

import (
	"context"

	"gigboard/internal/models"

	"gorm.io/gorm"
)

// MessageRepository defines persistence operations for contract messages.
type MessageRepository interface {
	Create(ctx context.Context, m *models.Message) error
	// ListRecent returns the newest limit messages in chronological order.
	ListRecent(ctx context.Context, contractID uint, limit int) ([]models.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, m *models.Message) error {
	if err := r.db.WithContext(ctx).Omit("Sender").Create(m).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *messageRepository) ListRecent(ctx context.Context, contractID uint, limit int) ([]models.Message, error) {
	var out []models.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("contract_id = ?", contractID).
		Order("created_at DESC").Order("id DESC").
		Limit(clampLimit(limit, 200, 200)).
		Find(&out).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
