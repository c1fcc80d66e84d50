package db

import (
	"context"
	"time"

	"github.com/terraincognita07/easypeasy/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MilestoneRepository struct {
	database *gorm.DB
}

func NewMilestoneRepository(database *gorm.DB) *MilestoneRepository {
	return &MilestoneRepository{database: database}
}

func (repo *MilestoneRepository) Exists(ctx context.Context, userID string, chapter int) (bool, error) {
	var count int64
	if err := repo.database.WithContext(ctx).Model(&models.MilestoneRecord{}).
		Where("user_id = ? AND chapter = ?", userID, chapter).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (repo *MilestoneRepository) InsertIfAbsent(ctx context.Context, userID string, chapter int, sentAt time.Time) (bool, error) {
	result := repo.database.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&models.MilestoneRecord{
		UserID:  userID,
		Chapter: chapter,
		SentAt:  sentAt.UTC(),
	})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (repo *MilestoneRepository) ListByUser(ctx context.Context, userID string) ([]models.MilestoneRecord, error) {
	records := make([]models.MilestoneRecord, 0)
	if err := repo.database.WithContext(ctx).Where("user_id = ?", userID).Order("chapter ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
