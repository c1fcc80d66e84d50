package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/easypeasy/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type JournalRepository struct {
	database *gorm.DB
}

func NewJournalRepository(database *gorm.DB) *JournalRepository {
	return &JournalRepository{database: database}
}

func (repo *JournalRepository) ListByUser(ctx context.Context, userID string) ([]models.Journal, error) {
	entries := make([]models.Journal, 0)
	if err := repo.database.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (repo *JournalRepository) FindByDate(ctx context.Context, userID string, date string) (models.Journal, error) {
	var entry models.Journal
	if err := repo.database.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date).
		First(&entry).Error; err != nil {
		return models.Journal{}, err
	}
	return entry, nil
}

func (repo *JournalRepository) SaveForDate(ctx context.Context, entry models.Journal) (models.Journal, error) {
	now := time.Now().UTC()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Tags == nil {
		entry.Tags = []string{}
	}
	entry.CreatedAt = now
	entry.UpdatedAt = now

	if err := repo.database.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "entry", "tags", "updated_at"}),
	}).Create(&entry).Error; err != nil {
		return models.Journal{}, err
	}
	return repo.FindByDate(ctx, entry.UserID, entry.Date)
}

func (repo *JournalRepository) Delete(ctx context.Context, userID string, entryID string) (bool, error) {
	result := repo.database.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, entryID).
		Delete(&models.Journal{})
	return result.RowsAffected > 0, result.Error
}
