package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/loyalty-service/internal/api/http/handlers"
	"github.com/spec-kit/loyalty-service/internal/auth"
	"github.com/spec-kit/loyalty-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Customers      *handlers.CustomersHandler
	DailyRun       *handlers.DailyRunHandler
	Vouchers       *handlers.VouchersHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
	// TriggerSecret guards /daily-check and /birthday-webhook.
	TriggerSecret string
	// VoucherDir is served under /images so SMS links resolve.
	VoucherDir string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	if cfg.VoucherDir != "" {
		app.Static("/images", cfg.VoucherDir)
	}

	app.Post("/signup", cfg.Customers.Signup)

	secret := auth.RequireSharedSecret(cfg.TriggerSecret)
	app.Get("/daily-check", secret, cfg.DailyRun.Run)
	app.Post("/daily-check", secret, cfg.DailyRun.Run)
	app.Post("/birthday-webhook", secret, cfg.Customers.BirthdayWebhook)

	app.Post("/staff/login", cfg.Vouchers.Login)
	vouchers := app.Group("/vouchers", cfg.AuthMiddleware.Handle)
	vouchers.Get("/:code", cfg.Vouchers.Lookup)
}
