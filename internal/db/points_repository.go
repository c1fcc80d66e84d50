package db

import (
	"context"
	"time"

	"github.com/terraincognita07/easypeasy/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PointsRepository struct {
	database *gorm.DB
}

func NewPointsRepository(database *gorm.DB) *PointsRepository {
	return &PointsRepository{database: database}
}

func (repo *PointsRepository) FindOrCreate(ctx context.Context, userID string) (models.UserPoints, error) {
	database := repo.database.WithContext(ctx)
	if err := database.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.UserPoints{
		UserID:    userID,
		UpdatedAt: time.Now().UTC(),
	}).Error; err != nil {
		return models.UserPoints{}, err
	}

	var points models.UserPoints
	if err := database.Where("user_id = ?", userID).First(&points).Error; err != nil {
		return models.UserPoints{}, err
	}
	return points, nil
}

func (repo *PointsRepository) AwardOncePerDay(ctx context.Context, userID string, points int, day string) (bool, error) {
	if _, err := repo.FindOrCreate(ctx, userID); err != nil {
		return false, err
	}
	result := repo.database.WithContext(ctx).Model(&models.UserPoints{}).
		Where("user_id = ? AND last_completed <> ?", userID, day).
		Updates(map[string]any{
			"total_points":   gorm.Expr("total_points + ?", points),
			"last_completed": day,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
