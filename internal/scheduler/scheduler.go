package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/terraincognita07/easypeasy/internal/logger"
)

const (
	DefaultSessionMaxIdle       = 30 * time.Minute
	defaultSessionPruneInterval = 10
	dailyMessageJobTimeout      = 2 * time.Minute
)

type DailyMessenger interface {
	EnsureDailyMessages(ctx context.Context, now time.Time) (int, error)
}

type SessionPruner interface {
	Prune(maxIdle time.Duration) int
}

type Options struct {
	Location         *time.Location
	DailyMessageTime string
	SessionMaxIdle   time.Duration
}

type Scheduler struct {
	scheduler *gocron.Scheduler
	messages  DailyMessenger
	sessions  SessionPruner
	options   Options
	log       *logger.Logger
	now       func() time.Time
}

func New(messages DailyMessenger, sessions SessionPruner, options Options, log *logger.Logger) *Scheduler {
	if options.Location == nil {
		options.Location = time.UTC
	}
	if options.DailyMessageTime == "" {
		options.DailyMessageTime = "08:00"
	}
	if options.SessionMaxIdle <= 0 {
		options.SessionMaxIdle = DefaultSessionMaxIdle
	}
	if log == nil {
		log = logger.NewNop()
	}

	s := gocron.NewScheduler(options.Location)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		messages:  messages,
		sessions:  sessions,
		options:   options,
		log:       log.With("component", "scheduler"),
		now:       time.Now,
	}
}

func (s *Scheduler) Start() error {
	if s.messages != nil {
		if _, err := s.scheduler.Every(1).Day().At(s.options.DailyMessageTime).Do(s.sendDailyMessages); err != nil {
			return fmt.Errorf("schedule daily messages: %w", err)
		}
	}
	if s.sessions != nil {
		if _, err := s.scheduler.Every(defaultSessionPruneInterval).Minutes().Do(s.pruneSessions); err != nil {
			return fmt.Errorf("schedule session pruning: %w", err)
		}
	}
	s.scheduler.StartAsync()
	s.log.Info("scheduler started", "daily_message_time", s.options.DailyMessageTime, "jobs", len(s.scheduler.Jobs()))
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) sendDailyMessages() {
	ctx, cancel := context.WithTimeout(context.Background(), dailyMessageJobTimeout)
	defer cancel()

	sent, err := s.messages.EnsureDailyMessages(ctx, s.now())
	if err != nil {
		s.log.Error("daily messages failed", "error", err)
		return
	}
	s.log.Info("daily messages sent", "count", sent)
}

func (s *Scheduler) pruneSessions() {
	if pruned := s.sessions.Prune(s.options.SessionMaxIdle); pruned > 0 {
		s.log.Debug("idle progress sessions pruned", "count", pruned)
	}
}
