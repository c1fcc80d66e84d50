package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/easypeasy/internal/logger"
	"github.com/terraincognita07/easypeasy/internal/models"
	"github.com/terraincognita07/easypeasy/internal/realtime"
	"gorm.io/gorm"
)

const (
	todayMessageLimit     = 5
	encouragementPoolSize = 100
	selfEncouragementNote = " (This is your own encouragement sent to yourself because you're the only user at the moment)"
)

var (
	ErrNoTemplates      = errors.New("no message templates found")
	ErrTemplateNotFound = errors.New("message template not found")
	ErrMessageNotFound  = errors.New("message not found")
)

type MessageRepository interface {
	ListSince(ctx context.Context, userID string, since time.Time, limit int) ([]models.DailyMessage, error)
	CountUnreadSince(ctx context.Context, userID string, since time.Time) (int64, error)
	Create(ctx context.Context, message *models.DailyMessage) error
	MarkRead(ctx context.Context, userID string, messageID string) (bool, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	UserIDsWithoutMessageSince(ctx context.Context, since time.Time) ([]string, error)
}

type TemplateRepository interface {
	Templates(ctx context.Context) ([]models.MotivationalTemplate, error)
	FindTemplate(ctx context.Context, templateID uint) (models.MotivationalTemplate, error)
}

type RecipientDirectory interface {
	ListOtherIDs(ctx context.Context, excludeUserID string, limit int) ([]string, error)
}

type TodayMessages struct {
	Messages    []models.DailyMessage `json:"messages"`
	UnreadCount int64                 `json:"unread_count"`
}

type EncouragementResult struct {
	Message models.DailyMessage `json:"-"`
	ToSelf  bool                `json:"to_self"`
}

type MessageService struct {
	messages   MessageRepository
	templates  TemplateRepository
	recipients RecipientDirectory
	broker     realtime.Broker
	location   *time.Location
	log        *logger.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

func NewMessageService(messages MessageRepository, templates TemplateRepository, recipients RecipientDirectory, broker realtime.Broker, location *time.Location, log *logger.Logger) *MessageService {
	if location == nil {
		location = time.UTC
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &MessageService{
		messages:   messages,
		templates:  templates,
		recipients: recipients,
		broker:     broker,
		location:   location,
		log:        log.With("service", "MessageService"),
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (service *MessageService) ListToday(ctx context.Context, identity Identity, now time.Time) (TodayMessages, error) {
	ownerID, err := identity.OwnerID()
	if err != nil {
		return TodayMessages{}, err
	}
	start := DateAtLocation(now, service.location)

	messages, err := service.messages.ListSince(ctx, ownerID, start, todayMessageLimit)
	if err != nil {
		return TodayMessages{}, fmt.Errorf("list messages: %w", err)
	}
	unread, err := service.messages.CountUnreadSince(ctx, ownerID, start)
	if err != nil {
		return TodayMessages{}, fmt.Errorf("count unread messages: %w", err)
	}
	return TodayMessages{Messages: messages, UnreadCount: unread}, nil
}

func (service *MessageService) MarkRead(ctx context.Context, identity Identity, messageID string) error {
	ownerID, err := identity.OwnerID()
	if err != nil {
		return err
	}
	updated, err := service.messages.MarkRead(ctx, ownerID, messageID)
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	if !updated {
		return ErrMessageNotFound
	}
	return nil
}

func (service *MessageService) MarkAllRead(ctx context.Context, identity Identity) (int64, error) {
	ownerID, err := identity.OwnerID()
	if err != nil {
		return 0, err
	}
	count, err := service.messages.MarkAllRead(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	return count, nil
}

func (service *MessageService) Templates(ctx context.Context) ([]models.MotivationalTemplate, error) {
	templates, err := service.templates.Templates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	return templates, nil
}

// SendEncouragement delivers a template to a random other user. With nobody
// else around the sender receives it, marked as sent to themselves.
func (service *MessageService) SendEncouragement(ctx context.Context, identity Identity, templateID uint, now time.Time) (EncouragementResult, error) {
	senderID, err := identity.OwnerID()
	if err != nil {
		return EncouragementResult{}, err
	}

	template, err := service.templates.FindTemplate(ctx, templateID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return EncouragementResult{}, ErrTemplateNotFound
	}
	if err != nil {
		return EncouragementResult{}, fmt.Errorf("load template: %w", err)
	}

	candidates, err := service.recipients.ListOtherIDs(ctx, senderID, encouragementPoolSize)
	if err != nil {
		return EncouragementResult{}, fmt.Errorf("list recipients: %w", err)
	}

	message := models.DailyMessage{MessageText: template.Text, SentAt: now.UTC()}
	toSelf := len(candidates) == 0
	if toSelf {
		message.UserID = senderID
		message.MessageText += selfEncouragementNote
	} else {
		message.UserID = candidates[service.intn(len(candidates))]
	}

	if err := service.insert(ctx, &message); err != nil {
		return EncouragementResult{}, err
	}
	return EncouragementResult{Message: message, ToSelf: toSelf}, nil
}

func (service *MessageService) EnsureDailyMessages(ctx context.Context, now time.Time) (int, error) {
	templates, err := service.templates.Templates(ctx)
	if err != nil {
		return 0, fmt.Errorf("load templates: %w", err)
	}
	if len(templates) == 0 {
		return 0, ErrNoTemplates
	}

	userIDs, err := service.messages.UserIDsWithoutMessageSince(ctx, DateAtLocation(now, service.location))
	if err != nil {
		return 0, fmt.Errorf("list users without messages: %w", err)
	}

	inserted := 0
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}
		message := models.DailyMessage{
			UserID:      userID,
			MessageText: templates[service.intn(len(templates))].Text,
			SentAt:      now.UTC(),
		}
		if err := service.insert(ctx, &message); err != nil {
			return inserted, err
		}
		inserted++
	}
	service.log.Info("daily messages ensured", "inserted", inserted)
	return inserted, nil
}

func (service *MessageService) insert(ctx context.Context, message *models.DailyMessage) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if err := service.messages.Create(ctx, message); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if service.broker == nil {
		return nil
	}
	if err := service.broker.Publish(ctx, realtime.Event{
		Table:   realtime.TableDailyMessages,
		Type:    realtime.EventInsert,
		UserID:  message.UserID,
		Payload: *message,
	}); err != nil {
		service.log.Warn("publish message insert failed", "user_id", message.UserID, "error", err)
	}
	return nil
}

func (service *MessageService) intn(n int) int {
	service.randMu.Lock()
	defer service.randMu.Unlock()
	return service.rand.Intn(n)
}
