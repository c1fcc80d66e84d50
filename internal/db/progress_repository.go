package db

import (
	"context"
	"time"

	"github.com/terraincognita07/easypeasy/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	database *gorm.DB
}

func NewProgressRepository(database *gorm.DB) *ProgressRepository {
	return &ProgressRepository{database: database}
}

func (repo *ProgressRepository) ChapterNumbers(ctx context.Context, userID string) ([]int, error) {
	chapters := make([]int, 0)
	if err := repo.database.WithContext(ctx).Model(&models.ProgressRecord{}).
		Where("user_id = ?", userID).
		Order("chapter_number ASC").
		Pluck("chapter_number", &chapters).Error; err != nil {
		return nil, err
	}
	return chapters, nil
}

func (repo *ProgressRepository) ListByUser(ctx context.Context, userID string) ([]models.ProgressRecord, error) {
	records := make([]models.ProgressRecord, 0)
	if err := repo.database.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("chapter_number ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (repo *ProgressRepository) InsertChapters(ctx context.Context, userID string, chapters []int, completedAt time.Time) (int64, error) {
	if len(chapters) == 0 {
		return 0, nil
	}
	records := make([]models.ProgressRecord, 0, len(chapters))
	for _, chapter := range chapters {
		records = append(records, models.ProgressRecord{
			UserID:        userID,
			ChapterNumber: chapter,
			CompletedAt:   completedAt.UTC(),
		})
	}
	result := repo.database.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&records)
	return result.RowsAffected, result.Error
}
