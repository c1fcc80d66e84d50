package db

import (
	"context"

	"github.com/terraincognita07/easypeasy/internal/content"
	"github.com/terraincognita07/easypeasy/internal/models"
	"gorm.io/gorm"
)

type ContentRepository struct {
	database *gorm.DB
}

func NewContentRepository(database *gorm.DB) *ContentRepository {
	return &ContentRepository{database: database}
}

func (repo *ContentRepository) Challenges(ctx context.Context) ([]models.DailyChallenge, error) {
	challenges := make([]models.DailyChallenge, 0)
	if err := repo.database.WithContext(ctx).Order("id ASC").Find(&challenges).Error; err != nil {
		return nil, err
	}
	return challenges, nil
}

func (repo *ContentRepository) Templates(ctx context.Context) ([]models.MotivationalTemplate, error) {
	templates := make([]models.MotivationalTemplate, 0)
	if err := repo.database.WithContext(ctx).Order("id ASC").Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

func (repo *ContentRepository) FindTemplate(ctx context.Context, templateID uint) (models.MotivationalTemplate, error) {
	var template models.MotivationalTemplate
	if err := repo.database.WithContext(ctx).Where("id = ?", templateID).First(&template).Error; err != nil {
		return models.MotivationalTemplate{}, err
	}
	return template, nil
}

func (repo *ContentRepository) SeedFromCatalog(ctx context.Context, catalog *content.Catalog) error {
	return repo.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var challengeCount int64
		if err := tx.Model(&models.DailyChallenge{}).Count(&challengeCount).Error; err != nil {
			return err
		}
		if challengeCount == 0 && len(catalog.Challenges) > 0 {
			rows := make([]models.DailyChallenge, 0, len(catalog.Challenges))
			for _, item := range catalog.Challenges {
				rows = append(rows, models.DailyChallenge{ID: item.ID, Text: item.Text})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}

		var templateCount int64
		if err := tx.Model(&models.MotivationalTemplate{}).Count(&templateCount).Error; err != nil {
			return err
		}
		if templateCount == 0 && len(catalog.Templates) > 0 {
			rows := make([]models.MotivationalTemplate, 0, len(catalog.Templates))
			for _, item := range catalog.Templates {
				rows = append(rows, models.MotivationalTemplate{ID: item.ID, Text: item.Text})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
