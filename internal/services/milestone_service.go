package services

import (
	"context"
	"fmt"
	"time"

	"github.com/terraincognita07/easypeasy/internal/logger"
	"github.com/terraincognita07/easypeasy/internal/models"
	"github.com/terraincognita07/easypeasy/internal/notify"
)

type MilestoneOutcome string

const (
	MilestoneNotMilestone    MilestoneOutcome = "not_milestone"
	MilestoneAlreadyRecorded MilestoneOutcome = "already_recorded"
	MilestoneRecorded        MilestoneOutcome = "recorded"
)

var milestoneChapters = map[int]struct{}{5: {}, 10: {}, 20: {}}

func IsMilestoneChapter(chapter int) bool {
	_, ok := milestoneChapters[chapter]
	return ok
}

type MilestoneLedger interface {
	Exists(ctx context.Context, userID string, chapter int) (bool, error)
	InsertIfAbsent(ctx context.Context, userID string, chapter int, sentAt time.Time) (bool, error)
}

type UserLookup interface {
	FindByID(ctx context.Context, userID string) (models.User, error)
}

type MilestoneService struct {
	ledger   MilestoneLedger
	users    UserLookup
	notifier notify.Notifier
	log      *logger.Logger
	now      func() time.Time
}

func NewMilestoneService(ledger MilestoneLedger, users UserLookup, notifier notify.Notifier, log *logger.Logger) *MilestoneService {
	if log == nil {
		log = logger.NewNop()
	}
	return &MilestoneService{
		ledger:   ledger,
		users:    users,
		notifier: notifier,
		log:      log.With("service", "MilestoneService"),
		now:      time.Now,
	}
}

// CheckAndUpdateMilestones records a milestone for chapters 5, 10 and 20 at
// most once per user. Only the call that wrote the record sends the email.
func (service *MilestoneService) CheckAndUpdateMilestones(ctx context.Context, userID string, chapter int) (MilestoneOutcome, error) {
	if !IsMilestoneChapter(chapter) {
		return MilestoneNotMilestone, nil
	}

	exists, err := service.ledger.Exists(ctx, userID, chapter)
	if err != nil {
		return "", fmt.Errorf("check milestone: %w", err)
	}
	if exists {
		return MilestoneAlreadyRecorded, nil
	}

	created, err := service.ledger.InsertIfAbsent(ctx, userID, chapter, service.now())
	if err != nil {
		return "", fmt.Errorf("record milestone: %w", err)
	}
	if !created {
		return MilestoneAlreadyRecorded, nil
	}

	service.notify(ctx, userID, chapter)
	return MilestoneRecorded, nil
}

func (service *MilestoneService) notify(ctx context.Context, userID string, chapter int) {
	if service.notifier == nil || service.users == nil {
		return
	}
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		service.log.Warn("milestone email skipped; user lookup failed", "user_id", userID, "chapter", chapter, "error", err)
		return
	}
	email, err := notify.MilestoneEmail(user.Email, chapter)
	if err != nil {
		service.log.Warn("milestone email skipped", "user_id", userID, "chapter", chapter, "error", err)
		return
	}
	if err := service.notifier.Send(ctx, email); err != nil {
		service.log.Warn("milestone email failed", "user_id", userID, "chapter", chapter, "error", err)
	}
}
