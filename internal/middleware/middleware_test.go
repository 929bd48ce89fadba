package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/skillpath-api/internal/middleware"
	"github.com/noah-isme/skillpath-api/internal/observability"
)

const testSecret = "middleware-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func whoAmI(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"user": middleware.UserID(c)})
}

func perform(t *testing.T, app *fiber.App, authorization string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestJWTProtectedAcceptsStringSubject(t *testing.T) {
	app := fiber.New()
	app.Get("/", middleware.JWTProtected(testSecret), whoAmI)

	token := signToken(t, testSecret, jwt.MapClaims{"sub": "user_2abc", "exp": time.Now().Add(time.Hour).Unix()})
	resp, body := perform(t, app, "Bearer "+token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "user_2abc", body["user"])
}

func TestJWTProtectedAcceptsNumericSubject(t *testing.T) {
	app := fiber.New()
	app.Get("/", middleware.JWTProtected(testSecret), whoAmI)

	token := signToken(t, testSecret, jwt.MapClaims{"user_id": 42})
	resp, body := perform(t, app, "bearer "+token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "42", body["user"])
}

func TestJWTProtectedRejections(t *testing.T) {
	expired := signToken(t, testSecret, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Minute).Unix()})
	wrongSecret := signToken(t, "other", jwt.MapClaims{"sub": "u1"})
	noSubject := signToken(t, testSecret, jwt.MapClaims{"email": "a@example.com"})
	careerHandle := signToken(t, testSecret, jwt.MapClaims{
		"sub":    "u1",
		"iss":    middleware.CareerTokenIssuer,
		"career": "Backend Developer",
		"exp":    time.Now().Add(time.Minute).Unix(),
	})
	hs384, err := jwt.NewWithClaims(jwt.SigningMethodHS384, jwt.MapClaims{"sub": "u1"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	cases := map[string]string{
		"missing":       "",
		"not bearer":    "Basic abc",
		"empty bearer":  "Bearer ",
		"expired":       "Bearer " + expired,
		"wrong secret":  "Bearer " + wrongSecret,
		"no subject":    "Bearer " + noSubject,
		"career token":  "Bearer " + careerHandle,
		"non hs256 alg": "Bearer " + hs384,
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", middleware.JWTProtected(testSecret), whoAmI)

			resp, body := perform(t, app, header)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
			require.Equal(t, false, body["success"])
		})
	}
}

func TestJWTOptionalAllowsAnonymous(t *testing.T) {
	app := fiber.New()
	app.Get("/", middleware.JWTOptional(testSecret), whoAmI)

	resp, body := perform(t, app, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "", body["user"])

	resp, _ = perform(t, app, "Bearer garbage")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestWithAuthRequiresUser(t *testing.T) {
	app := fiber.New()
	app.Get("/", middleware.JWTOptional(testSecret), middleware.WithAuth(whoAmI, middleware.AuthOptions{RequireUser: true}))

	resp, body := perform(t, app, "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "authentication required", body["message"])

	token := signToken(t, testSecret, jwt.MapClaims{"sub": "u1"})
	resp, _ = perform(t, app, "Bearer "+token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestWithAuthAllowsAnonymousWhenOptedIn(t *testing.T) {
	app := fiber.New()
	app.Get("/", middleware.WithAuth(whoAmI, middleware.AuthOptions{}))

	resp, _ := perform(t, app, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRateLimitRejectsAfterMax(t *testing.T) {
	app := fiber.New()
	app.Get("/", middleware.RateLimit("test", 2, time.Minute), whoAmI)

	for i := 0; i < 2; i++ {
		resp, _ := perform(t, app, "")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, body := perform(t, app, "")
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, false, body["success"])
}

func TestCorrelationIDPropagatesIncomingHeader(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"locals":  middleware.GetCorrelationID(c),
			"context": middleware.CorrelationIDFromContext(c.UserContext()),
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, "req-123", resp.Header.Get("X-Correlation-ID"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "req-123", body["locals"])
	require.Equal(t, "req-123", body["context"])
}

func TestCorrelationIDGeneratesWhenMissing(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Get("/", whoAmI)

	resp, _ := perform(t, app, "")
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
}

func TestJWTProtectedReadsQueryTokenOnWebsocketHandshake(t *testing.T) {
	app := fiber.New()
	app.Get("/", middleware.JWTProtected(testSecret), whoAmI)

	token := signToken(t, testSecret, jwt.MapClaims{"sub": "socket-user"})

	req := httptest.NewRequest(http.MethodGet, "/?access_token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	plain := httptest.NewRequest(http.MethodGet, "/?access_token="+token, nil)
	resp, err = app.Test(plain, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCorrelationIDReplacesUnsafeHeader(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Get("/", whoAmI)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "bad id\twith spaces")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	id := resp.Header.Get("X-Correlation-ID")
	require.NotEmpty(t, id)
	require.NotEqual(t, "bad id\twith spaces", id)
}

func TestObservabilityCountsHandlerErrors(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.Observability(zerolog.Nop()))
	app.Get("/api/v1/upgrade", func(c *fiber.Ctx) error {
		return fiber.ErrUpgradeRequired
	})

	counter := observability.HTTPErrors().WithLabelValues(http.MethodGet, "/api/v1/upgrade", "426")
	before := testutil.ToFloat64(counter)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/upgrade", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
	require.Equal(t, before+1, testutil.ToFloat64(counter))
}
