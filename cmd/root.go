package main

import (
	"context"

	"apiquery/internal/config"
	"apiquery/internal/logger"
	"apiquery/internal/session"
	"apiquery/internal/transport"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	appLog *logger.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "apiquery",
		Short:         "Query a fixed REST backend and show the result as a table",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			appLog = logger.New(verbose)
			appLog.V(1).Info("config loaded", "base_url", cfg.BaseURL, "raw_prefix", cfg.RawPrefix)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newServeCmd(), newGUICmd(), newTUICmd(), newQueryCmd())
	return root
}

// commandContext returns the command's context carrying the application logger.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logger.WithLogger(ctx, appLog.Logger)
}

func newController() *session.Controller {
	return session.NewController(
		transport.NewHTTP(cfg.RequestTimeout),
		session.WithBaseURL(cfg.BaseURL),
		session.WithRawPrefix(cfg.RawPrefix),
	)
}
