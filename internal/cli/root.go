package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/terraincognita07/easypeasy/internal/config"
	"github.com/terraincognita07/easypeasy/internal/logger"
)

type rootOptions struct {
	envFile string
}

func NewRootCommand(stdout io.Writer) *cobra.Command {
	options := &rootOptions{}

	root := &cobra.Command{
		Use:           "easypeasy",
		Short:         "EasyPeasy progress and habit tracking service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.PersistentFlags().StringVar(&options.envFile, "env-file", ".env", "optional dotenv file read before the environment")

	root.AddCommand(
		newServeCommand(options),
		newResetPasswordCommand(options),
		newSendDailyMessagesCommand(options),
	)
	return root
}

func Execute(ctx context.Context, stdout io.Writer, args []string) error {
	root := NewRootCommand(stdout)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (options *rootOptions) load() (config.Config, *logger.Logger, error) {
	cfg, err := config.Load(options.envFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}
