package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/skillpath-api/internal/config"
	"github.com/noah-isme/skillpath-api/internal/database"
	"github.com/noah-isme/skillpath-api/internal/handler"
	"github.com/noah-isme/skillpath-api/internal/middleware"
	"github.com/noah-isme/skillpath-api/internal/models"
	"github.com/noah-isme/skillpath-api/internal/repository"
	"github.com/noah-isme/skillpath-api/internal/router"
	"github.com/noah-isme/skillpath-api/internal/service"
	"github.com/noah-isme/skillpath-api/pkg/ai"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level).With().Str("service", cfg.AppName).Logger()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := db.AutoMigrate(&models.GeneratedRoadmap{}, &models.ChatMessage{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient, err := database.ConnectRedis(context.Background(), cfg.RedisURL)
	switch {
	case errors.Is(err, database.ErrNotConfigured):
		logger.Info().Msg("redis url not set, roadmap cache disabled")
	case err != nil:
		logger.Warn().Err(err).Msg("roadmap cache disabled")
	default:
		defer redisClient.Close()
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	switch {
	case errors.Is(err, database.ErrNotConfigured):
		logger.Info().Msg("nats url not set, roadmap events disabled")
	case err != nil:
		logger.Warn().Err(err).Msg("roadmap events disabled")
	default:
		defer natsConn.Drain()
	}

	var completer ai.Completer
	openAICompleter, err := ai.NewCompleter(ai.Config{
		Provider:    cfg.AIProvider,
		APIKey:      cfg.AIAPIKey,
		Model:       cfg.AIModel,
		BaseURL:     cfg.AIBaseURL,
		MaxTokens:   cfg.AIMaxTokens,
		Temperature: cfg.AITemperature,
		Timeout:     cfg.AITimeout,
		Logger:      logger,
	})
	if err != nil {
		logger.Error().Err(err).Msg("ai provider unavailable, generation and chat will return 503")
	} else {
		completer = openAICompleter
		logger.Info().Str("provider", openAICompleter.Provider()).Str("model", openAICompleter.Model()).Msg("ai provider configured")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	roadmapRepo := repository.NewGeneratedRoadmapRepository(db)
	chatRepo := repository.NewChatRepository(db)

	events := service.NewNATSPublisher(natsConn, logger)
	careerService := service.NewCareerService(cfg.CareerTokenSecret, cfg.CareerTokenTTL, validate, logger)
	roadmapService := service.NewRoadmapService(roadmapRepo, completer, careerService, redisClient, events, validate, cfg.RoadmapCacheTTL, logger)
	chatService := service.NewChatService(chatRepo, completer, validate, cfg.ChatHistoryTurns, logger)
	quoteService := service.NewQuoteService(cfg.QuoteRotation)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		// Generation waits on the model, which can take most of the provider timeout.
		ReadTimeout:  cfg.AITimeout + 15*time.Second,
		WriteTimeout: cfg.AITimeout + 15*time.Second,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowedOrigins: cfg.CORSAllowedOrigins})
	router.Register(app, cfg, router.Dependencies{
		RoadmapHandler:    handler.NewRoadmapHandler(roadmapService, logger),
		CareerHandler:     handler.NewCareerHandler(careerService, logger),
		ChatHandler:       handler.NewChatHandler(chatService, logger),
		QuoteHandler:      handler.NewQuoteHandler(quoteService),
		OptionalAuth:      middleware.JWTOptional(cfg.JWTSecret),
		RequiredAuth:      middleware.JWTProtected(cfg.JWTSecret),
		GenerationLimiter: middleware.RateLimit("roadmap", cfg.RateLimitMax, cfg.RateLimitWindow),
		ChatLimiter:       middleware.RateLimit("chat", cfg.RateLimitMax*3, cfg.RateLimitWindow),
		Health: handler.HealthComponents{
			AIReady:       completer != nil,
			CacheEnabled:  redisClient != nil,
			EventsEnabled: natsConn != nil,
		},
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
