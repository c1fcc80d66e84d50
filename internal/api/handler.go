package api

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/terraincognita07/easypeasy/internal/content"
	"github.com/terraincognita07/easypeasy/internal/db"
	"github.com/terraincognita07/easypeasy/internal/localstore"
	"github.com/terraincognita07/easypeasy/internal/logger"
	"github.com/terraincognita07/easypeasy/internal/notify"
	"github.com/terraincognita07/easypeasy/internal/realtime"
	"github.com/terraincognita07/easypeasy/internal/services"
	"gorm.io/gorm"
)

const (
	defaultAuthTokenTTL  = 7 * 24 * time.Hour
	rememberAuthTokenTTL = 30 * 24 * time.Hour
	deviceCookieTTL      = 365 * 24 * time.Hour

	forgotPasswordLimit  = 5
	forgotPasswordWindow = 15 * time.Minute
	loginFailureLimit    = 10
	loginFailureWindow   = 15 * time.Minute
)

type Options struct {
	SecretKey     string
	Location      *time.Location
	CookieSecure  bool
	PublicBaseURL string
	Catalog       *content.Catalog
	Devices       localstore.Devices
	Broker        realtime.Broker
	Notifier      notify.Notifier
	Logger        *logger.Logger
}

type Handler struct {
	secretKey    []byte
	location     *time.Location
	cookieSecure bool
	catalog      *content.Catalog
	devices      localstore.Devices
	broker       realtime.Broker
	log          *logger.Logger
	now          func() time.Time
	randIntn     func(n int) int

	streamCtx   context.Context
	stopStreams context.CancelFunc

	repositories    *db.Repositories
	authService     *services.AuthService
	settingsService *services.SettingsService
	progressEngine  *services.ProgressEngine
	sessions        *services.ProgressSessions
	completion      *services.CompletionService
	pointsService   *services.PointsService
	journalService  *services.JournalService
	messageService  *services.MessageService
	exportService   *services.ExportService

	forgotLimiter *attemptLimiter
	loginLimiter  *attemptLimiter
}

func NewHandler(database *gorm.DB, options Options) (*Handler, error) {
	if database == nil {
		return nil, errors.New("database is required")
	}
	if len(options.SecretKey) == 0 {
		return nil, errors.New("secret key is required")
	}
	if options.Location == nil {
		options.Location = time.UTC
	}
	if options.Logger == nil {
		options.Logger = logger.NewNop()
	}
	if options.Catalog == nil {
		catalog, err := content.Default()
		if err != nil {
			return nil, err
		}
		options.Catalog = catalog
	}
	if options.Devices == nil {
		options.Devices = localstore.NewMemoryDevices()
	}
	if options.Broker == nil {
		options.Broker = realtime.NewHub(options.Logger)
	}
	if options.Notifier == nil {
		options.Notifier = notify.NewLogNotifier(options.Logger)
	}

	streamCtx, stopStreams := context.WithCancel(context.Background())
	handler := &Handler{
		streamCtx:     streamCtx,
		stopStreams:   stopStreams,
		secretKey:     []byte(options.SecretKey),
		location:      options.Location,
		cookieSecure:  options.CookieSecure,
		catalog:       options.Catalog,
		devices:       options.Devices,
		broker:        options.Broker,
		log:           options.Logger.With("component", "api"),
		now:           time.Now,
		randIntn:      rand.Intn,
		forgotLimiter: newAttemptLimiter(forgotPasswordLimit, forgotPasswordWindow),
		loginLimiter:  newAttemptLimiter(loginFailureLimit, loginFailureWindow),
	}
	return handler.withDependencies(database, options), nil
}

func (handler *Handler) withDependencies(database *gorm.DB, options Options) *Handler {
	repos := db.NewRepositories(database)
	log := options.Logger

	handler.repositories = repos
	handler.authService = services.NewAuthService(repos.Users, options.Notifier, services.AuthServiceOptions{
		SecretKey:     handler.secretKey,
		PublicBaseURL: options.PublicBaseURL,
	}, log)
	handler.completion = services.NewCompletionService(repos.Profiles, handler.location)
	handler.progressEngine = services.NewProgressEngine(
		services.NewRemoteProgressStore(repos.Progress),
		services.NewMilestoneService(repos.Milestones, repos.Users, options.Notifier, log),
		handler.completion,
		log,
	)
	handler.sessions = services.NewProgressSessions(handler.progressEngine)
	handler.settingsService = services.NewSettingsService(repos.Users, log, handler.sessions.InvalidateUser)
	handler.pointsService = services.NewPointsService(repos.Points, repos.Content, handler.broker, handler.location, log)
	handler.journalService = services.NewJournalService(repos.Journals, handler.location, log)
	handler.messageService = services.NewMessageService(repos.Messages, repos.Content, repos.Users, handler.broker, handler.location, log)
	handler.exportService = services.NewExportService(repos.Users, repos.Profiles, repos.Points, repos.Progress, repos.Milestones, repos.Journals)
	return handler
}

func (handler *Handler) Sessions() *services.ProgressSessions {
	return handler.sessions
}

func (handler *Handler) Messages() *services.MessageService {
	return handler.messageService
}

func (handler *Handler) Close() {
	handler.stopStreams()
}
