package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/loyalty-service/internal/api/http/handlers"
	"github.com/spec-kit/loyalty-service/internal/auth"
	"github.com/spec-kit/loyalty-service/internal/config"
	"github.com/spec-kit/loyalty-service/internal/domain"
	"github.com/spec-kit/loyalty-service/internal/notify"
	"github.com/spec-kit/loyalty-service/internal/observability"
	"github.com/spec-kit/loyalty-service/internal/persistence"
	"github.com/spec-kit/loyalty-service/internal/repository"
	"github.com/spec-kit/loyalty-service/internal/service"
	"github.com/spec-kit/loyalty-service/internal/voucher"
)

const triggerSecret = "s3cret"

type okChannel struct{ name notify.ChannelName }

func (c okChannel) Name() notify.ChannelName                     { return c.name }
func (c okChannel) Deliver(context.Context, notify.Message) error { return nil }

type testServer struct {
	app    *fiber.App
	repo   *repository.MemoryCustomerRepository
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T, staffPasswordHash string) *testServer {
	t.Helper()
	return newTestServerWithTimeout(t, staffPasswordHash, time.Minute)
}

func newTestServerWithTimeout(t *testing.T, staffPasswordHash string, requestTimeout time.Duration) *testServer {
	t.Helper()
	logger := zap.NewNop()
	repo := repository.NewMemoryCustomerRepository()
	allocator := voucher.NewAllocator(repo, "TWC", logger, nil)
	metrics := observability.NewMetrics()

	templates := config.Templates{}
	for _, key := range domain.RequiredTemplateKeys {
		templates[key] = config.TemplatePair{Email: "e-" + string(key), SMS: "s-" + string(key)}
	}
	voucherDir := t.TempDir()
	notifications := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:   notify.NewDispatcher(notify.RetryPolicy{}, logger),
		Email:        okChannel{name: notify.ChannelEmail},
		SMS:          okChannel{name: notify.ChannelSMS},
		Templates:    templates,
		Renderer:     voucher.NewImageRenderer("", voucherDir, "http://localhost/images", logger),
		PhonePattern: regexp.MustCompile(`^\+?61\d{9}$`),
	}, logger)

	signup := service.NewSignupService(service.SignupDependencies{
		Customers:     repo,
		Allocator:     allocator,
		Notifications: notifications,
		Clock:         func() time.Time { return time.Date(2023, time.January, 20, 9, 0, 0, 0, time.UTC) },
	}, logger)
	dailyRun := service.NewDailyRunService(service.DailyRunDependencies{
		Customers:     repo,
		Allocator:     allocator,
		Notifications: notifications,
		Metrics:       metrics,
	}, logger)
	tokens := auth.NewTokenManager("jwt-secret", 60)
	lookup := service.NewLookupService(repo, tokens, staffPasswordHash)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, requestTimeout)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("loyalty-service", "test", &persistence.Postgres{}, &persistence.Redis{}),
		Customers:      handlers.NewCustomersHandler(signup, notifications),
		DailyRun:       handlers.NewDailyRunHandler(context.Background(), dailyRun, time.UTC, func() time.Time { return time.Date(2023, time.June, 1, 9, 0, 0, 0, time.UTC) }),
		Vouchers:       handlers.NewVouchersHandler(lookup),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        metrics,
		TriggerSecret:  triggerSecret,
		VoucherDir:     voucherDir,
	})
	return &testServer{app: app, repo: repo, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

const signupBody = `{"name":"Sam","email":"sam@example.com","phone_number":"+61412345678","birth_day":15,"birth_month":1}`

func TestSignupEndpoint(t *testing.T) {
	s := newTestServer(t, "")

	status, body := s.do(t, "POST", "/signup", signupBody, nil)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "TWC-1000", body["voucher_code"])
	assert.Equal(t, true, body["email"])
	assert.Equal(t, true, body["sms"])

	status, body = s.do(t, "POST", "/signup", signupBody, nil)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "DUPLICATE_CUSTOMER", body["error"].(map[string]any)["code"])

	status, _ = s.do(t, "POST", "/signup", `{"name":"Sam"}`, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = s.do(t, "GET", "/images/voucher_TWC-1000.jpg", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestDailyCheckRequiresSecret(t *testing.T) {
	s := newTestServer(t, "")

	status, _ := s.do(t, "GET", "/daily-check", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.do(t, "POST", "/daily-check", "", map[string]string{"Authorization": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body := s.do(t, "GET", "/daily-check", "", map[string]string{"Authorization": triggerSecret})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "2023-06-01", body["date"])
}

func TestDailyCheckForDate(t *testing.T) {
	s := newTestServer(t, "")
	_, _ = s.do(t, "POST", "/signup", signupBody, nil)
	headers := map[string]string{"Authorization": triggerSecret}

	status, body := s.do(t, "POST", "/daily-check?date=2024-01-23", "", headers)
	require.Equal(t, fiber.StatusOK, status)
	results := body["results"].([]any)
	require.Len(t, results, 1)
	first := results[0].(map[string]any)
	assert.Equal(t, true, first["voucher_updated"])
	assert.Equal(t, "TWC-1001", first["voucher_code"])

	status, _ = s.do(t, "POST", "/daily-check?date=23-01-2024", "", headers)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestBirthdayWebhook(t *testing.T) {
	s := newTestServer(t, "")
	headers := map[string]string{"Authorization": triggerSecret}

	status, body := s.do(t, "POST", "/birthday-webhook",
		`{"name":"Sam","phone":"+61412345678","voucherCode":"TWC-1003","templateType":"TEMPLATE_1MONTH"}`, headers)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["email"])
	assert.Equal(t, true, body["sms"])

	status, _ = s.do(t, "POST", "/birthday-webhook", `{"name":"Sam","voucherCode":"TWC-1003"}`, headers)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestVoucherLookupRequiresStaffToken(t *testing.T) {
	hash, err := auth.HashPassword("flat-white-42")
	require.NoError(t, err)
	s := newTestServer(t, hash)
	_, _ = s.do(t, "POST", "/signup", signupBody, nil)

	status, _ := s.do(t, "GET", "/vouchers/TWC-1000", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.do(t, "POST", "/staff/login", `{"password":"nope"}`, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body := s.do(t, "POST", "/staff/login", `{"password":"flat-white-42"}`, nil)
	require.Equal(t, fiber.StatusOK, status)
	token := body["data"].(map[string]any)["token"].(string)

	bearer := map[string]string{"Authorization": "Bearer " + token}
	status, body = s.do(t, "GET", "/vouchers/TWC-1000", "", bearer)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Sam", body["data"].(map[string]any)["name"])

	status, _ = s.do(t, "GET", "/vouchers/TWC-9999", "", bearer)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, "")

	status, body := s.do(t, "GET", "/health/ready", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "disabled", deps["postgres"])
	assert.Equal(t, "disabled", deps["redis"])

	_, _ = s.do(t, "GET", "/health/live", "", nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "loyalty_http_requests_total")
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	s := newTestServer(t, "")
	status, body := s.do(t, "GET", "/nope", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])
}

func TestRequestIDIsEchoedOrGenerated(t *testing.T) {
	s := newTestServer(t, "")

	req := httptest.NewRequest("GET", "/health/live", nil)
	req.Header.Set(observability.RequestIDHeader, "req-42")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-42", resp.Header.Get(observability.RequestIDHeader))

	resp, err = s.app.Test(httptest.NewRequest("GET", "/health/live", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Len(t, resp.Header.Get(observability.RequestIDHeader), 36)
}

func TestBirthdayWebhookRejectsMalformedVoucherCode(t *testing.T) {
	s := newTestServer(t, "")
	headers := map[string]string{"Authorization": triggerSecret}

	status, body := s.do(t, "POST", "/birthday-webhook",
		`{"name":"Sam","phone":"+61412345678","voucherCode":"../../../escaped"}`, headers)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", body["error"].(map[string]any)["code"])
}

func TestDailyCheckOutlivesRequestTimeout(t *testing.T) {
	s := newTestServerWithTimeout(t, "", time.Nanosecond)
	_, _ = s.do(t, "POST", "/signup", signupBody, nil)

	status, body := s.do(t, "POST", "/daily-check?date=2024-01-23", "", map[string]string{"Authorization": triggerSecret})
	require.Equal(t, fiber.StatusOK, status)
	results := body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "TWC-1001", results[0].(map[string]any)["voucher_code"])
}
