package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "skillpath",
		Subsystem: "ai",
		Name:      "completion_duration_seconds",
		Help:      "Duration of AI completion requests",
		Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
	}, []string{"provider", "model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skillpath",
		Subsystem: "ai",
		Name:      "completion_failures_total",
		Help:      "Number of AI completion failures",
	}, []string{"provider", "model"})
)

// Supported providers. All of them speak the OpenAI chat completions protocol.
const (
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

type providerDefaults struct {
	baseURL string
	model   string
}

var providers = map[string]providerDefaults{
	ProviderOpenAI:     {model: "gpt-4o-mini"},
	ProviderGemini:     {baseURL: "https://generativelanguage.googleapis.com/v1beta/openai", model: "gemini-2.0-flash"},
	ProviderOpenRouter: {baseURL: "https://openrouter.ai/api/v1", model: "google/gemini-2.0-flash-001"},
}

// Config selects and tunes the completion provider.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	Logger      zerolog.Logger
}

// OpenAICompleter implements Completer against any OpenAI-compatible chat completion API.
type OpenAICompleter struct {
	client   *openai.Client
	provider string
	cfg      Config
	tracer   trace.Tracer
	logger   zerolog.Logger
}

// NewCompleter builds the Completer for the configured provider.
func NewCompleter(cfg Config) (*OpenAICompleter, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderOpenAI
	}
	defaults, ok := providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: %s api key is required", ErrProviderNotConfigured, provider)
	}

	if cfg.Model == "" {
		cfg.Model = defaults.model
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.baseURL
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	config.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAICompleter{
		client:   openai.NewClientWithConfig(config),
		provider: provider,
		cfg:      cfg,
		tracer:   otel.Tracer("github.com/noah-isme/skillpath-api/pkg/ai/openai"),
		logger:   logger.With().Str("component", "ai_completer").Str("provider", provider).Logger(),
	}, nil
}

// Provider returns the resolved provider name.
func (c *OpenAICompleter) Provider() string {
	return c.provider
}

// Model returns the model requests are sent to.
func (c *OpenAICompleter) Model() string {
	return c.cfg.Model
}

// Complete sends the request and returns the first choice.
func (c *OpenAICompleter) Complete(parent context.Context, req CompletionRequest) (CompletionResult, error) {
	ctx, span := c.tracer.Start(parent, "ai.complete", trace.WithAttributes(
		attribute.String("ai.provider", c.provider),
		attribute.String("ai.model", c.cfg.Model),
		attribute.Bool("ai.json", req.JSON),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages:    buildMessages(req),
	}
	if req.JSON {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(c.provider, c.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return CompletionResult{}, c.fail(span, fmt.Errorf("%s completion: %w", c.provider, err))
	}
	if len(resp.Choices) == 0 {
		return CompletionResult{}, c.fail(span, ErrEmptyCompletion)
	}

	c.logger.Debug().
		Str("model", resp.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Str("finish_reason", string(resp.Choices[0].FinishReason)).
		Msg("completion received")

	model := resp.Model
	if model == "" {
		model = c.cfg.Model
	}

	return CompletionResult{
		Content:          strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (c *OpenAICompleter) fail(span trace.Span, err error) error {
	aiFailures.WithLabelValues(c.provider, c.cfg.Model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func buildMessages(req CompletionRequest) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, turn := range req.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})
	return messages
}
