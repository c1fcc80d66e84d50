package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/terraincognita07/easypeasy/internal/content"
	"github.com/terraincognita07/easypeasy/internal/db"
	"github.com/terraincognita07/easypeasy/internal/realtime"
	"github.com/terraincognita07/easypeasy/internal/services"
)

func newSendDailyMessagesCommand(options *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send-daily-messages",
		Short: "Give every user without a message today one encouragement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := options.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			database, err := db.OpenSQLite(cfg.DBPath, log)
			if err != nil {
				return fmt.Errorf("database init failed: %w", err)
			}
			if sqlDB, err := database.DB(); err == nil {
				defer sqlDB.Close()
			}

			catalog, err := content.Default()
			if err != nil {
				return err
			}
			repos := db.NewRepositories(database)
			if err := repos.Content.SeedFromCatalog(cmd.Context(), catalog); err != nil {
				return fmt.Errorf("seed catalog: %w", err)
			}

			// Through Redis the running servers push the new messages to their
			// open streams; without it nobody is subscribed to this process.
			var broker realtime.Broker
			if cfg.RedisAddr != "" {
				redisBroker, err := realtime.NewRedisBroker(cmd.Context(), log, cfg.RedisAddr, cfg.RedisChannel, realtime.NewHub(log))
				if err != nil {
					return fmt.Errorf("realtime init failed: %w", err)
				}
				defer redisBroker.Close()
				broker = redisBroker
			}

			messages := services.NewMessageService(repos.Messages, repos.Content, repos.Users, broker, cfg.Location, log)
			sent, err := messages.EnsureDailyMessages(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %d daily messages\n", sent)
			return nil
		},
	}
}
