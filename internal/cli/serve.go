package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"github.com/terraincognita07/easypeasy/internal/api"
	"github.com/terraincognita07/easypeasy/internal/config"
	"github.com/terraincognita07/easypeasy/internal/content"
	"github.com/terraincognita07/easypeasy/internal/db"
	"github.com/terraincognita07/easypeasy/internal/localstore"
	"github.com/terraincognita07/easypeasy/internal/logger"
	"github.com/terraincognita07/easypeasy/internal/notify"
	"github.com/terraincognita07/easypeasy/internal/realtime"
	"github.com/terraincognita07/easypeasy/internal/scheduler"
)

const (
	shutdownTimeout     = 10 * time.Second
	notifyQueueSize     = 128
	redisDevicePrefix   = "easypeasy:device:"
	eventStreamEndpoint = "/api/events"
)

func newServeCommand(options *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, realtime stream and background jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := options.load()
			if err != nil {
				return err
			}
			defer log.Sync()
			return runServe(cmd.Context(), cfg, log)
		},
	}
}

func runServe(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	time.Local = cfg.Location

	lifecycleCtx, cancelLifecycle := context.WithCancel(ctx)
	defer cancelLifecycle()

	database, err := db.OpenSQLite(cfg.DBPath, log)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}
	if sqlDB, err := database.DB(); err == nil {
		defer sqlDB.Close()
	}

	catalog, err := content.Default()
	if err != nil {
		return fmt.Errorf("catalog init failed: %w", err)
	}
	if err := db.NewContentRepository(database).SeedFromCatalog(lifecycleCtx, catalog); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	devices, closeDevices, err := openDevices(lifecycleCtx, cfg)
	if err != nil {
		return err
	}
	defer closeDevices()

	broker, closeBroker, err := openBroker(lifecycleCtx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBroker()

	provider, err := newNotifier(cfg, log)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(provider, log, notifyQueueSize)
	dispatcher.Start(lifecycleCtx)
	defer dispatcher.Stop()

	handler, err := api.NewHandler(database, api.Options{
		SecretKey:     cfg.SecretKey,
		Location:      cfg.Location,
		CookieSecure:  cfg.CookieSecure,
		PublicBaseURL: cfg.PublicBaseURL,
		Catalog:       catalog,
		Devices:       devices,
		Broker:        broker,
		Notifier:      dispatcher,
		Logger:        log,
	})
	if err != nil {
		return fmt.Errorf("handler init failed: %w", err)
	}

	jobs := scheduler.New(handler.Messages(), handler.Sessions(), scheduler.Options{
		Location:         cfg.Location,
		DailyMessageTime: cfg.DailyMessageTime,
	}, log)
	if err := jobs.Start(); err != nil {
		return err
	}
	defer jobs.Stop()

	app := newApp(handler, cfg.CookieSecure)

	go func() {
		<-lifecycleCtx.Done()
		handler.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("easypeasy listening",
		"addr", "http://0.0.0.0:"+cfg.Port,
		"db", cfg.DBPath,
		"tz", cfg.Location.String(),
		"local_store", cfg.LocalStore,
	)
	if err := app.Listen(":" + cfg.Port); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	return nil
}

func newApp(handler *api.Handler, cookieSecure bool) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "EasyPeasy",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == eventStreamEndpoint
		},
	}))
	app.Use(csrf.New(api.CSRFConfig(cookieSecure)))

	api.RegisterRoutes(app, handler)
	app.Use(handler.NotFound)
	return app
}

func openDevices(ctx context.Context, cfg config.Config) (localstore.Devices, func(), error) {
	switch cfg.LocalStore {
	case config.LocalStoreMemory:
		return localstore.NewMemoryDevices(), func() {}, nil
	case config.LocalStoreRedis:
		devices, err := localstore.NewRedisDevices(ctx, cfg.RedisAddr, redisDevicePrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("device store init failed: %w", err)
		}
		return devices, func() { _ = devices.Close() }, nil
	case config.LocalStoreFile, "":
		devices, err := localstore.NewFileDevices(cfg.LocalStoreDir)
		if err != nil {
			return nil, nil, fmt.Errorf("device store init failed: %w", err)
		}
		return devices, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported local store %q", cfg.LocalStore)
	}
}

func openBroker(ctx context.Context, cfg config.Config, log *logger.Logger) (realtime.Broker, func(), error) {
	hub := realtime.NewHub(log)
	if cfg.RedisAddr == "" {
		return hub, func() {}, nil
	}

	broker, err := realtime.NewRedisBroker(ctx, log, cfg.RedisAddr, cfg.RedisChannel, hub)
	if err != nil {
		return nil, nil, fmt.Errorf("realtime init failed: %w", err)
	}
	if err := broker.StartForwarder(ctx); err != nil {
		_ = broker.Close()
		return nil, nil, fmt.Errorf("realtime init failed: %w", err)
	}
	return broker, func() { _ = broker.Close() }, nil
}

func newNotifier(cfg config.Config, log *logger.Logger) (notify.Notifier, error) {
	if cfg.ResendAPIKey == "" {
		log.Warn("RESEND_API_KEY not set; emails will only be logged")
		return notify.NewLogNotifier(log), nil
	}
	client, err := notify.NewResendClient(cfg.ResendBaseURL, cfg.ResendAPIKey, cfg.MailFrom)
	if err != nil {
		return nil, errors.Join(errors.New("email provider init failed"), err)
	}
	return client, nil
}
