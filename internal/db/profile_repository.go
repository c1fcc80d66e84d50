package db

import (
	"context"
	"time"

	"github.com/terraincognita07/easypeasy/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository struct {
	database *gorm.DB
}

func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{database: database}
}

func (repo *ProfileRepository) Find(ctx context.Context, userID string) (models.UserProfile, error) {
	var profile models.UserProfile
	if err := repo.database.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return models.UserProfile{}, err
	}
	return profile, nil
}

func (repo *ProfileRepository) SetCompletionDateIfAbsent(ctx context.Context, userID string, completedAt time.Time) (bool, error) {
	now := time.Now().UTC()
	written := false
	err := repo.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.UserProfile{
			UserID:    userID,
			CreatedAt: now,
			UpdatedAt: now,
		}).Error; err != nil {
			return err
		}
		result := tx.Model(&models.UserProfile{}).
			Where("user_id = ? AND completion_date IS NULL", userID).
			Updates(map[string]any{
				"completion_date": completedAt.UTC(),
				"updated_at":      now,
			})
		if result.Error != nil {
			return result.Error
		}
		written = result.RowsAffected == 1
		return nil
	})
	return written, err
}
