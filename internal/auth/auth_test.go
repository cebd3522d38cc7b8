package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/loyalty-service/pkg/util"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, exp, err := tm.GenerateToken("staff", SubjectStaff)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), exp, time.Minute)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "staff", claims.Subject)
	assert.Equal(t, SubjectStaff, claims.Role)

	_, err = NewTokenManager("other", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	tm.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := tm.GenerateToken("staff", SubjectStaff)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("flat-white-42")
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "flat-white-42"))
	assert.ErrorIs(t, ComparePassword(hash, "long-black-42"), ErrPasswordMismatch)
}

func newGuardedApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	handlers = append(handlers, func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/", handlers...)
	return app
}

func status(t *testing.T, app *fiber.App, authorization string) int {
	t.Helper()
	req := httptest.NewRequest("GET", "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestRequireSharedSecret(t *testing.T) {
	app := newGuardedApp(RequireSharedSecret("s3cret"))
	assert.Equal(t, fiber.StatusOK, status(t, app, "s3cret"))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "Bearer s3cret"))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, ""))

	closed := newGuardedApp(RequireSharedSecret(""))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, closed, ""))
}

func TestAuthMiddlewareRequiresStaffRole(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	app := newGuardedApp(NewAuthMiddleware(tm).Handle)

	staff, _, err := tm.GenerateToken("staff", SubjectStaff)
	require.NoError(t, err)
	other, _, err := tm.GenerateToken("someone", "CUSTOMER")
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, status(t, app, "Bearer "+staff))
	assert.Equal(t, fiber.StatusForbidden, status(t, app, "Bearer "+other))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "Bearer garbage"))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "Basic abc"))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, ""))
}

func TestPrincipalFromContext(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, _, err := tm.GenerateToken("staff", SubjectStaff)
	require.NoError(t, err)

	var got *Principal
	app := newGuardedApp(NewAuthMiddleware(tm).Handle, func(c *fiber.Ctx) error {
		got, _ = PrincipalFromContext(c)
		return c.Next()
	})
	require.Equal(t, fiber.StatusOK, status(t, app, "Bearer "+token))
	require.NotNil(t, got)
	assert.Equal(t, "staff", got.Subject)
}
