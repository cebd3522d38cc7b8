package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/loyalty-service/internal/domain"
	"github.com/spec-kit/loyalty-service/internal/service"
	apperrors "github.com/spec-kit/loyalty-service/pkg/util"
)

// DailyRunHandler exposes the protected daily-run trigger.
type DailyRunHandler struct {
	base     context.Context
	runs     *service.DailyRunService
	location *time.Location
	now      func() time.Time
}

// NewDailyRunHandler constructs handler. today is derived from now in
// location. Runs execute under base rather than the request context, so the
// request timeout and client disconnects do not cut a run short; cancelling
// base stops the run between customers.
func NewDailyRunHandler(base context.Context, runs *service.DailyRunService, location *time.Location, now func() time.Time) *DailyRunHandler {
	if base == nil {
		base = context.Background()
	}
	if location == nil {
		location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &DailyRunHandler{base: base, runs: runs, location: location, now: now}
}

// Run handles GET|POST /daily-check. An optional ?date=YYYY-MM-DD replays a given day.
func (h *DailyRunHandler) Run(c *fiber.Ctx) error {
	today := h.now().In(h.location)
	if raw := c.Query("date"); raw != "" {
		parsed, err := domain.ParseDate(raw)
		if err != nil {
			return apperrors.NewValidationError("invalid date", map[string]any{"date": raw})
		}
		today = parsed
	}

	outcomes, err := h.runs.Trigger(h.base, today)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"date":    domain.DateOf(today).Format(time.DateOnly),
		"results": outcomes,
	})
}
