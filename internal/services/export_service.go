package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/terraincognita07/easypeasy/internal/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type ExportProgressReader interface {
	ListByUser(ctx context.Context, userID string) ([]models.ProgressRecord, error)
}

type ExportMilestoneReader interface {
	ListByUser(ctx context.Context, userID string) ([]models.MilestoneRecord, error)
}

type ExportJournalReader interface {
	ListByUser(ctx context.Context, userID string) ([]models.Journal, error)
}

type ExportProfileReader interface {
	Find(ctx context.Context, userID string) (models.UserProfile, error)
}

type ExportPointsReader interface {
	FindOrCreate(ctx context.Context, userID string) (models.UserPoints, error)
}

type AccountExport struct {
	ExportedAt time.Time                `json:"exported_at"`
	User       models.User              `json:"user"`
	Profile    *models.UserProfile      `json:"profile"`
	Points     models.UserPoints        `json:"points"`
	Progress   []models.ProgressRecord  `json:"progress"`
	Milestones []models.MilestoneRecord `json:"milestones"`
	Journals   []models.Journal         `json:"journals"`
}

type ExportService struct {
	users      UserLookup
	profiles   ExportProfileReader
	points     ExportPointsReader
	progress   ExportProgressReader
	milestones ExportMilestoneReader
	journals   ExportJournalReader
	now        func() time.Time
}

func NewExportService(users UserLookup, profiles ExportProfileReader, points ExportPointsReader, progress ExportProgressReader, milestones ExportMilestoneReader, journals ExportJournalReader) *ExportService {
	return &ExportService{
		users:      users,
		profiles:   profiles,
		points:     points,
		progress:   progress,
		milestones: milestones,
		journals:   journals,
		now:        time.Now,
	}
}

func (service *ExportService) BuildAccountExport(ctx context.Context, userID string) (AccountExport, error) {
	export := AccountExport{ExportedAt: service.now().UTC()}
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		user, err := service.users.FindByID(groupCtx, userID)
		if err != nil {
			return fmt.Errorf("export user: %w", err)
		}
		export.User = user
		return nil
	})
	group.Go(func() error {
		profile, err := service.profiles.Find(groupCtx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("export profile: %w", err)
		}
		export.Profile = &profile
		return nil
	})
	group.Go(func() error {
		points, err := service.points.FindOrCreate(groupCtx, userID)
		if err != nil {
			return fmt.Errorf("export points: %w", err)
		}
		export.Points = points
		return nil
	})
	group.Go(func() error {
		progress, err := service.progress.ListByUser(groupCtx, userID)
		if err != nil {
			return fmt.Errorf("export progress: %w", err)
		}
		export.Progress = progress
		return nil
	})
	group.Go(func() error {
		milestones, err := service.milestones.ListByUser(groupCtx, userID)
		if err != nil {
			return fmt.Errorf("export milestones: %w", err)
		}
		export.Milestones = milestones
		return nil
	})
	group.Go(func() error {
		journals, err := service.journals.ListByUser(groupCtx, userID)
		if err != nil {
			return fmt.Errorf("export journals: %w", err)
		}
		export.Journals = journals
		return nil
	})

	if err := group.Wait(); err != nil {
		return AccountExport{}, err
	}
	return export, nil
}
