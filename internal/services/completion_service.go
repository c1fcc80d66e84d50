package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/terraincognita07/easypeasy/internal/models"
	"gorm.io/gorm"
)

type CompletionRecordRepository interface {
	Find(ctx context.Context, userID string) (models.UserProfile, error)
	SetCompletionDateIfAbsent(ctx context.Context, userID string, completedAt time.Time) (bool, error)
}

type StreakInfo struct {
	CompletionDate *time.Time `json:"completion_date"`
	StreakDays     int        `json:"streak_days"`
}

type CompletionService struct {
	profiles CompletionRecordRepository
	location *time.Location
	now      func() time.Time
}

func NewCompletionService(profiles CompletionRecordRepository, location *time.Location) *CompletionService {
	if location == nil {
		location = time.UTC
	}
	return &CompletionService{profiles: profiles, location: location, now: time.Now}
}

func (service *CompletionService) UpdateCompletionDate(ctx context.Context, userID string, chapter int) (bool, error) {
	if chapter != models.TotalChapters {
		return false, nil
	}
	written, err := service.profiles.SetCompletionDateIfAbsent(ctx, userID, service.now())
	if err != nil {
		return false, fmt.Errorf("set completion date: %w", err)
	}
	return written, nil
}

func (service *CompletionService) Streak(ctx context.Context, identity Identity, now time.Time) (StreakInfo, error) {
	if !identity.IsAuthenticated() {
		return StreakInfo{}, nil
	}
	profile, err := service.profiles.Find(ctx, identity.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StreakInfo{}, nil
	}
	if err != nil {
		return StreakInfo{}, fmt.Errorf("load completion date: %w", err)
	}
	if profile.CompletionDate == nil {
		return StreakInfo{}, nil
	}
	return StreakInfo{
		CompletionDate: profile.CompletionDate,
		StreakDays:     StreakDays(*profile.CompletionDate, now, service.location),
	}, nil
}

// StreakDays counts the completion day itself as day one.
func StreakDays(completion time.Time, today time.Time, location *time.Location) int {
	days := CalendarDaysBetween(completion, today, location) + 1
	if days < 0 {
		return 0
	}
	return days
}
