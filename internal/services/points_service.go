package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/terraincognita07/easypeasy/internal/localstore"
	"github.com/terraincognita07/easypeasy/internal/logger"
	"github.com/terraincognita07/easypeasy/internal/models"
	"github.com/terraincognita07/easypeasy/internal/realtime"
)

const GuestPointsKey = "guestPoints"

var ErrNoChallenges = errors.New("no daily challenges configured")

type ChallengeStatus string

const (
	ChallengeAwarded          ChallengeStatus = "awarded"
	ChallengeAlreadyCompleted ChallengeStatus = "already_completed"
)

type PointsState struct {
	TotalPoints    int    `json:"total_points"`
	LastCompleted  string `json:"last_completed"`
	CompletedToday bool   `json:"completed_today"`
}

type ChallengeResult struct {
	Status           ChallengeStatus `json:"status"`
	Awarded          int             `json:"awarded"`
	Points           PointsState     `json:"points"`
	MilestoneReached bool            `json:"milestone_reached"`
	Milestone        int             `json:"milestone,omitempty"`
}

type PointsRepository interface {
	FindOrCreate(ctx context.Context, userID string) (models.UserPoints, error)
	AwardOncePerDay(ctx context.Context, userID string, points int, day string) (bool, error)
}

type ChallengeRepository interface {
	Challenges(ctx context.Context) ([]models.DailyChallenge, error)
}

type PointsService struct {
	points     PointsRepository
	challenges ChallengeRepository
	broker     realtime.Broker
	location   *time.Location
	log        *logger.Logger

	guestMu sync.Mutex
}

func NewPointsService(points PointsRepository, challenges ChallengeRepository, broker realtime.Broker, location *time.Location, log *logger.Logger) *PointsService {
	if location == nil {
		location = time.UTC
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &PointsService{
		points:     points,
		challenges: challenges,
		broker:     broker,
		location:   location,
		log:        log.With("service", "PointsService"),
	}
}

func (service *PointsService) ChallengeOfTheDay(ctx context.Context, now time.Time) (models.DailyChallenge, error) {
	challenges, err := service.challenges.Challenges(ctx)
	if err != nil {
		return models.DailyChallenge{}, fmt.Errorf("load challenges: %w", err)
	}
	if len(challenges) == 0 {
		return models.DailyChallenge{}, ErrNoChallenges
	}
	day := now.In(service.location).YearDay()
	return challenges[day%len(challenges)], nil
}

func (service *PointsService) Points(ctx context.Context, identity Identity, store localstore.Store, now time.Time) (PointsState, error) {
	today := DateString(now, service.location)
	switch {
	case identity.IsAuthenticated():
		row, err := service.points.FindOrCreate(ctx, identity.UserID)
		if err != nil {
			return PointsState{}, fmt.Errorf("load points: %w", err)
		}
		return stateOf(row.TotalPoints, row.LastCompleted, today), nil
	case identity.IsGuest():
		service.guestMu.Lock()
		defer service.guestMu.Unlock()
		guest, err := service.readGuest(ctx, store)
		if err != nil {
			return PointsState{}, err
		}
		return stateOf(guest.TotalPoints, guest.LastCompleted, today), nil
	default:
		return PointsState{}, ErrIdentityRequired
	}
}

// CompleteChallenge awards DailyChallengePoints at most once per calendar day
// in the service time zone.
func (service *PointsService) CompleteChallenge(ctx context.Context, identity Identity, store localstore.Store, now time.Time) (ChallengeResult, error) {
	today := DateString(now, service.location)
	switch {
	case identity.IsAuthenticated():
		return service.completeRemote(ctx, identity.UserID, today)
	case identity.IsGuest():
		return service.completeGuest(ctx, store, today)
	default:
		return ChallengeResult{}, ErrIdentityRequired
	}
}

func (service *PointsService) completeRemote(ctx context.Context, userID string, today string) (ChallengeResult, error) {
	applied, err := service.points.AwardOncePerDay(ctx, userID, models.DailyChallengePoints, today)
	if err != nil {
		return ChallengeResult{}, fmt.Errorf("award points: %w", err)
	}
	row, err := service.points.FindOrCreate(ctx, userID)
	if err != nil {
		return ChallengeResult{}, fmt.Errorf("load points: %w", err)
	}

	state := stateOf(row.TotalPoints, row.LastCompleted, today)
	if !applied {
		return ChallengeResult{Status: ChallengeAlreadyCompleted, Points: state}, nil
	}

	result := awardedResult(row.TotalPoints-models.DailyChallengePoints, state)
	service.publish(ctx, userID, state)
	return result, nil
}

func (service *PointsService) completeGuest(ctx context.Context, store localstore.Store, today string) (ChallengeResult, error) {
	service.guestMu.Lock()
	defer service.guestMu.Unlock()

	guest, err := service.readGuest(ctx, store)
	if err != nil {
		return ChallengeResult{}, err
	}
	if guest.LastCompleted == today {
		return ChallengeResult{Status: ChallengeAlreadyCompleted, Points: stateOf(guest.TotalPoints, guest.LastCompleted, today)}, nil
	}

	before := guest.TotalPoints
	guest.TotalPoints += models.DailyChallengePoints
	guest.LastCompleted = today
	if err := service.writeGuest(ctx, store, guest); err != nil {
		return ChallengeResult{}, err
	}
	return awardedResult(before, stateOf(guest.TotalPoints, guest.LastCompleted, today)), nil
}

func (service *PointsService) publish(ctx context.Context, userID string, state PointsState) {
	if service.broker == nil {
		return
	}
	if err := service.broker.Publish(ctx, realtime.Event{
		Table:   realtime.TableUserPoints,
		Type:    realtime.EventUpdate,
		UserID:  userID,
		Payload: state,
	}); err != nil {
		service.log.Warn("publish points update failed", "user_id", userID, "error", err)
	}
}

type guestPoints struct {
	TotalPoints   int    `json:"total_points"`
	LastCompleted string `json:"last_completed"`
}

func (service *PointsService) readGuest(ctx context.Context, store localstore.Store) (guestPoints, error) {
	if store == nil {
		return guestPoints{}, ErrIdentityRequired
	}
	raw, ok, err := store.Get(ctx, GuestPointsKey)
	if err != nil {
		return guestPoints{}, fmt.Errorf("read guest points: %w", err)
	}
	if !ok || raw == "" {
		return guestPoints{}, nil
	}
	var guest guestPoints
	if err := json.Unmarshal([]byte(raw), &guest); err != nil || guest.TotalPoints < 0 {
		service.log.Warn("discarding corrupt guest points", "error", err)
		return guestPoints{}, nil
	}
	return guest, nil
}

func (service *PointsService) writeGuest(ctx context.Context, store localstore.Store, guest guestPoints) error {
	raw, err := json.Marshal(guest)
	if err != nil {
		return fmt.Errorf("encode guest points: %w", err)
	}
	if err := store.Set(ctx, GuestPointsKey, string(raw)); err != nil {
		return fmt.Errorf("write guest points: %w", err)
	}
	return nil
}

func stateOf(total int, lastCompleted string, today string) PointsState {
	return PointsState{TotalPoints: total, LastCompleted: lastCompleted, CompletedToday: lastCompleted == today}
}

func awardedResult(before int, state PointsState) ChallengeResult {
	result := ChallengeResult{
		Status:  ChallengeAwarded,
		Awarded: models.DailyChallengePoints,
		Points:  state,
	}
	if state.TotalPoints/100 > before/100 {
		result.MilestoneReached = true
		result.Milestone = (state.TotalPoints / 100) * 100
	}
	return result
}
