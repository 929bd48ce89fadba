package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName            string
	AppEnv             string
	AppPort            string
	LogLevel           string
	DatabaseDriver     string
	DatabaseURL        string
	RedisURL           string
	NATSURL            string
	JWTSecret          string
	CareerTokenSecret  string
	CareerTokenTTL     time.Duration
	RoadmapCacheTTL    time.Duration
	AIProvider         string
	AIAPIKey           string
	AIModel            string
	AIBaseURL          string
	AITimeout          time.Duration
	AIMaxTokens        int
	AITemperature      float32
	ChatHistoryTurns   int
	QuoteRotation      time.Duration
	RateLimitMax       int
	RateLimitWindow    time.Duration
	CORSAllowedOrigins string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SKILLPATH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "SkillPath API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("career_token.ttl", "10m")
	v.SetDefault("roadmap.cache_ttl", "24h")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.timeout", "60s")
	v.SetDefault("ai.max_tokens", 4096)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("chat.history_turns", 6)
	v.SetDefault("quotes.rotation", "15s")
	v.SetDefault("rate_limit.max", 10)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("cors.allowed_origins", "*")

	tokenTTL, err := parseDuration(v, "career_token.ttl")
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := parseDuration(v, "roadmap.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	aiTimeout, err := parseDuration(v, "ai.timeout")
	if err != nil {
		return Config{}, err
	}
	rateWindow, err := parseDuration(v, "rate_limit.window")
	if err != nil {
		return Config{}, err
	}
	quoteRotation, err := parseDuration(v, "quotes.rotation")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		LogLevel:           strings.ToLower(v.GetString("log.level")),
		DatabaseDriver:     strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:        v.GetString("database.url"),
		RedisURL:           v.GetString("redis.url"),
		NATSURL:            v.GetString("nats.url"),
		JWTSecret:          v.GetString("jwt.secret"),
		CareerTokenSecret:  v.GetString("career_token.secret"),
		CareerTokenTTL:     tokenTTL,
		RoadmapCacheTTL:    cacheTTL,
		AIProvider:         strings.ToLower(v.GetString("ai.provider")),
		AIAPIKey:           v.GetString("ai.api_key"),
		AIModel:            v.GetString("ai.model"),
		AIBaseURL:          v.GetString("ai.base_url"),
		AITimeout:          aiTimeout,
		AIMaxTokens:        v.GetInt("ai.max_tokens"),
		AITemperature:      float32(v.GetFloat64("ai.temperature")),
		ChatHistoryTurns:   v.GetInt("chat.history_turns"),
		QuoteRotation:      quoteRotation,
		RateLimitMax:       v.GetInt("rate_limit.max"),
		RateLimitWindow:    rateWindow,
		CORSAllowedOrigins: v.GetString("cors.allowed_origins"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.CareerTokenSecret == "" {
		cfg.CareerTokenSecret = cfg.JWTSecret
	}

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	if cfg.AIMaxTokens <= 0 {
		cfg.AIMaxTokens = 4096
	}

	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 10
	}

	if cfg.ChatHistoryTurns < 0 {
		cfg.ChatHistoryTurns = 0
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return value, nil
}
