package router_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/skillpath-api/internal/config"
	"github.com/noah-isme/skillpath-api/internal/handler"
	"github.com/noah-isme/skillpath-api/internal/middleware"
	"github.com/noah-isme/skillpath-api/internal/router"
	"github.com/noah-isme/skillpath-api/internal/service"
)

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg := config.Config{AppName: "SkillPath API", AppEnv: "test", JWTSecret: "secret"}
	validate := validator.New()
	careers := service.NewCareerService(cfg.JWTSecret, time.Minute, validate, zerolog.Nop())
	roadmaps := service.NewRoadmapService(nil, nil, careers, nil, nil, validate, time.Minute, zerolog.Nop())
	chats := service.NewChatService(nil, nil, validate, 3, zerolog.Nop())

	app := fiber.New()
	logger := zerolog.Nop()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		RoadmapHandler: handler.NewRoadmapHandler(roadmaps, zerolog.Nop()),
		CareerHandler:  handler.NewCareerHandler(careers, zerolog.Nop()),
		ChatHandler:    handler.NewChatHandler(chats, zerolog.Nop()),
		QuoteHandler:   handler.NewQuoteHandler(service.NewQuoteService(time.Minute)),
		OptionalAuth:   middleware.JWTOptional(cfg.JWTSecret),
		RequiredAuth:   middleware.JWTProtected(cfg.JWTSecret),
	})
	return app
}

func TestRouterServesHealthAndMetrics(t *testing.T) {
	app := newApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "SkillPath API", resp.Header.Get("X-Application"))
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "skillpath_http_requests_total")
}

func TestRouterGenerationWithoutProviderIsUnavailable(t *testing.T) {
	app := newApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/roadmaps", strings.NewReader(`{"career":"Game Developer"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRouterHistoryNeedsAuthentication(t *testing.T) {
	app := newApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/roadmaps", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouterChatRequiresBearerToken(t *testing.T) {
	app := newApp(t)

	for _, path := range []string{"/api/v1/chat/history", "/api/v1/chat/ws"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}
