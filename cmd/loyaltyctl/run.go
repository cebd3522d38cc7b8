package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/loyalty-service/internal/app"
	"github.com/spec-kit/loyalty-service/internal/config"
	"github.com/spec-kit/loyalty-service/internal/domain"
	"github.com/spec-kit/loyalty-service/internal/observability"
)

func runCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daily lifecycle check once against the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := observability.NewLogger(cfg.Logger, cfg.App)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			container, err := app.Build(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer container.Close()

			today := container.Today()
			if date != "" {
				if today, err = domain.ParseDate(date); err != nil {
					return err
				}
			}

			outcomes, runErr := container.DailyRun.Trigger(ctx, today)
			if runErr != nil {
				logger.Error("daily run failed", zap.Error(runErr))
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(map[string]any{
				"date":    domain.DateOf(today).Format(time.DateOnly),
				"results": outcomes,
			}); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "Run for this date (YYYY-MM-DD) instead of today")
	cmd.SetContext(context.Background())
	return cmd
}
