package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/loyalty-service/internal/api/http"
	"github.com/spec-kit/loyalty-service/internal/api/http/handlers"
	"github.com/spec-kit/loyalty-service/internal/app"
	"github.com/spec-kit/loyalty-service/internal/auth"
	"github.com/spec-kit/loyalty-service/internal/config"
	"github.com/spec-kit/loyalty-service/internal/observability"
	"github.com/spec-kit/loyalty-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build services", zap.Error(err))
	}
	defer container.Close()

	if cfg.DailyRun.ScheduleEnabled {
		scheduler := worker.NewDailyScheduler(container.DailyRun, container.Location, cfg.DailyRun.ScheduleHour, logger)
		go scheduler.Start(ctx)
	}

	server := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(server, logger, container.Metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(server, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, container.Postgres, container.Redis),
		Customers:      handlers.NewCustomersHandler(container.Signup, container.Notifications),
		DailyRun:       handlers.NewDailyRunHandler(ctx, container.DailyRun, container.Location, nil),
		Vouchers:       handlers.NewVouchersHandler(container.Lookup),
		AuthMiddleware: auth.NewAuthMiddleware(container.Tokens),
		Metrics:        container.Metrics,
		TriggerSecret:  cfg.Auth.DailyRunSecret,
		VoucherDir:     cfg.Voucher.OutputDir,
	})

	go func() {
		if err := server.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = server.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
