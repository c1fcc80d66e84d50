package db

import (
	"context"
	"time"

	"github.com/terraincognita07/easypeasy/internal/models"
	"gorm.io/gorm"
)

type MessageRepository struct {
	database *gorm.DB
}

func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{database: database}
}

func (repo *MessageRepository) ListSince(ctx context.Context, userID string, since time.Time, limit int) ([]models.DailyMessage, error) {
	messages := make([]models.DailyMessage, 0)
	if err := repo.database.WithContext(ctx).
		Where("user_id = ? AND sent_at >= ?", userID, since.UTC()).
		Order("sent_at DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (repo *MessageRepository) CountUnreadSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var count int64
	if err := repo.database.WithContext(ctx).Model(&models.DailyMessage{}).
		Where("user_id = ? AND sent_at >= ? AND read = ?", userID, since.UTC(), false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (repo *MessageRepository) Create(ctx context.Context, message *models.DailyMessage) error {
	message.SentAt = message.SentAt.UTC()
	return repo.database.WithContext(ctx).Create(message).Error
}

func (repo *MessageRepository) MarkRead(ctx context.Context, userID string, messageID string) (bool, error) {
	result := repo.database.WithContext(ctx).Model(&models.DailyMessage{}).
		Where("user_id = ? AND id = ?", userID, messageID).
		Update("read", true)
	return result.RowsAffected > 0, result.Error
}

func (repo *MessageRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result := repo.database.WithContext(ctx).Model(&models.DailyMessage{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	return result.RowsAffected, result.Error
}

func (repo *MessageRepository) UserIDsWithoutMessageSince(ctx context.Context, since time.Time) ([]string, error) {
	ids := make([]string, 0)
	if err := repo.database.WithContext(ctx).Model(&models.User{}).
		Where("NOT EXISTS (SELECT 1 FROM daily_messages dm WHERE dm.user_id = users.id AND dm.sent_at >= ?)", since.UTC()).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
