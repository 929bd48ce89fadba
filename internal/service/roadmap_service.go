package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/skillpath-api/internal/dto"
	"github.com/noah-isme/skillpath-api/internal/middleware"
	"github.com/noah-isme/skillpath-api/internal/models"
	"github.com/noah-isme/skillpath-api/internal/observability"
	"github.com/noah-isme/skillpath-api/internal/repository"
	"github.com/noah-isme/skillpath-api/pkg/ai"
	"github.com/noah-isme/skillpath-api/pkg/roadmap"
)

var (
	// ErrCareerRequired indicates neither a career nor a career token was supplied.
	ErrCareerRequired = errors.New("career or token is required")
	// ErrRoadmapNotFound indicates the requested roadmap does not exist for the caller.
	ErrRoadmapNotFound = errors.New("roadmap not found")
	// ErrCompleterUnavailable indicates no AI provider is configured.
	ErrCompleterUnavailable = errors.New("roadmap generator is not configured")
	// ErrCompletionFailed wraps provider transport and API failures.
	ErrCompletionFailed = errors.New("roadmap generation failed")
)

// RoadmapService generates, stores and renders career roadmaps.
type RoadmapService interface {
	Generate(ctx context.Context, userID string, req dto.RoadmapGenerateRequest) (dto.RoadmapResponse, error)
	History(ctx context.Context, userID string, req dto.RoadmapHistoryRequest) (dto.RoadmapHistoryResult, error)
	Get(ctx context.Context, userID string, id uint) (dto.RoadmapResponse, error)
	Mindmap(ctx context.Context, userID string, id uint) (dto.MindmapResponse, error)
	RenderMindmap(ctx context.Context, document []byte) (dto.MindmapResponse, error)
}

type roadmapService struct {
	repo      repository.GeneratedRoadmapRepository
	completer ai.Completer
	careers   CareerService
	cache     *redis.Client
	events    EventPublisher
	validator *validator.Validate
	ttl       time.Duration
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// cachedRoadmap is shared by every request whose career normalizes to the same key.
// Career and Warnings belong to a single request and are never written to redis.
type cachedRoadmap struct {
	Career   string              `json:"-"`
	Roadmap  roadmap.RoadmapData `json:"roadmap"`
	Model    string              `json:"model,omitempty"`
	Warnings []string            `json:"-"`
}

// NewRoadmapService constructs the roadmap service. A nil completer makes Generate
// report ErrCompleterUnavailable; cache and events are optional.
func NewRoadmapService(repo repository.GeneratedRoadmapRepository, completer ai.Completer, careers CareerService, cache *redis.Client, events EventPublisher, validate *validator.Validate, ttl time.Duration, logger zerolog.Logger) RoadmapService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if events == nil {
		events = NopPublisher{}
	}
	return &roadmapService{
		repo:      repo,
		completer: completer,
		careers:   careers,
		cache:     cache,
		events:    events,
		validator: validate,
		ttl:       ttl,
		logger:    logger.With().Str("component", "roadmap_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/skillpath-api/internal/service/roadmap"),
	}
}

func (s *roadmapService) Generate(ctx context.Context, userID string, req dto.RoadmapGenerateRequest) (dto.RoadmapResponse, error) {
	start := time.Now()
	defer func() {
		observability.RoadmapLatency().Observe(time.Since(start).Seconds())
	}()

	req.Career = strings.TrimSpace(req.Career)
	req.Token = strings.TrimSpace(req.Token)
	if err := s.validator.Struct(req); err != nil {
		observability.RoadmapRequests().WithLabelValues("invalid_request").Inc()
		return dto.RoadmapResponse{}, err
	}

	career := req.Career
	if career == "" {
		if req.Token == "" {
			observability.RoadmapRequests().WithLabelValues("invalid_request").Inc()
			return dto.RoadmapResponse{}, ErrCareerRequired
		}
		if s.careers == nil {
			return dto.RoadmapResponse{}, ErrInvalidCareerToken
		}
		resolved, err := s.careers.Resolve(ctx, userID, req.Token)
		if err != nil {
			observability.RoadmapRequests().WithLabelValues("invalid_request").Inc()
			return dto.RoadmapResponse{}, err
		}
		career = resolved
	}

	logger := s.logger.With().
		Str("career", career).
		Str("user_id", userID).
		Str("correlation_id", middleware.CorrelationIDFromContext(ctx)).
		Logger()

	ctx, span := s.tracer.Start(ctx, "roadmap.generate", trace.WithAttributes(
		attribute.String("roadmap.career", career),
		attribute.Bool("roadmap.authenticated", userID != ""),
	))
	defer span.End()

	if cached, ok := s.fetchCache(ctx, career); ok {
		span.SetAttributes(attribute.Bool("roadmap.cache_hit", true))
		observability.RoadmapRequests().WithLabelValues("cache_hit").Inc()
		for _, warning := range cached.Warnings {
			logger.Warn().Str("model", cached.Model).Bool("cache_hit", true).Msg(warning)
		}
		response := s.finish(ctx, logger, userID, cached, true)
		s.publish(ctx, SubjectRoadmapGenerated, RoadmapEvent{
			Career:    career,
			UserID:    userID,
			RoadmapID: response.ID,
			Model:     cached.Model,
			CacheHit:  true,
			LatencyMS: time.Since(start).Milliseconds(),
		})
		return response, nil
	}

	if s.completer == nil {
		observability.RoadmapRequests().WithLabelValues("unavailable").Inc()
		span.SetStatus(codes.Error, ErrCompleterUnavailable.Error())
		return dto.RoadmapResponse{}, ErrCompleterUnavailable
	}

	completion, err := s.completer.Complete(ctx, ai.CompletionRequest{
		System: roadmap.SystemPrompt(),
		Prompt: roadmap.BuildPrompt(career),
		JSON:   true,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		observability.RoadmapRequests().WithLabelValues("provider_error").Inc()
		logger.Error().Err(err).Msg("roadmap completion failed")
		s.publish(ctx, SubjectRoadmapFailed, RoadmapEvent{
			Career:    career,
			UserID:    userID,
			ErrorKind: "provider_error",
			Error:     err.Error(),
			LatencyMS: time.Since(start).Milliseconds(),
		})
		return dto.RoadmapResponse{}, fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}

	result, err := roadmap.Parse(completion.Content, career)
	if err != nil {
		kind := roadmap.KindOf(err)
		observability.RoadmapParseErrors().WithLabelValues(string(kind)).Inc()
		if kind == roadmap.KindUpstreamRefusal {
			observability.RoadmapRequests().WithLabelValues("refused").Inc()
		} else {
			observability.RoadmapRequests().WithLabelValues("invalid_response").Inc()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))

		event := logger.Warn().Err(err).Str("kind", string(kind)).Str("model", completion.Model)
		var parseErr *roadmap.ParseError
		if errors.As(err, &parseErr) {
			event = event.Str("path", parseErr.Path).Str("snippet", parseErr.Snippet)
		}
		event.Msg("model response rejected")

		s.publish(ctx, SubjectRoadmapFailed, RoadmapEvent{
			Career:    career,
			UserID:    userID,
			Model:     completion.Model,
			ErrorKind: string(kind),
			Error:     err.Error(),
			LatencyMS: time.Since(start).Milliseconds(),
		})
		return dto.RoadmapResponse{}, err
	}

	for _, warning := range result.Warnings {
		logger.Warn().Str("model", completion.Model).Msg(warning)
	}

	generated := cachedRoadmap{
		Career:   career,
		Roadmap:  result.Roadmap,
		Model:    completion.Model,
		Warnings: result.Warnings,
	}
	s.writeCache(ctx, career, generated)
	observability.RoadmapRequests().WithLabelValues("generated").Inc()

	response := s.finish(ctx, logger, userID, generated, false)
	logger.Info().
		Str("model", completion.Model).
		Int("prompt_tokens", completion.PromptTokens).
		Int("completion_tokens", completion.CompletionTokens).
		Dur("latency", time.Since(start)).
		Msg("roadmap generated")

	s.publish(ctx, SubjectRoadmapGenerated, RoadmapEvent{
		Career:    career,
		UserID:    userID,
		RoadmapID: response.ID,
		Model:     completion.Model,
		LatencyMS: time.Since(start).Milliseconds(),
	})

	return response, nil
}

// finish records history for signed-in users and builds the response. A storage failure
// does not cost the caller a roadmap that was already validated.
func (s *roadmapService) finish(ctx context.Context, logger zerolog.Logger, userID string, generated cachedRoadmap, cacheHit bool) dto.RoadmapResponse {
	response := dto.RoadmapResponse{
		Career:    generated.Career,
		Roadmap:   generated.Roadmap.Clone(),
		Model:     generated.Model,
		Warnings:  append([]string(nil), generated.Warnings...),
		CacheHit:  cacheHit,
		CreatedAt: time.Now().UTC(),
	}

	if userID == "" || s.repo == nil {
		return response
	}

	payload, err := json.Marshal(generated.Roadmap)
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode roadmap for history")
		return response
	}

	record := models.GeneratedRoadmap{
		UserID:  userID,
		Career:  generated.Career,
		Model:   generated.Model,
		Payload: payload,
	}
	if err := s.repo.Create(ctx, &record); err != nil {
		logger.Error().Err(err).Msg("failed to store roadmap history")
		return response
	}

	response.ID = record.ID
	response.CreatedAt = record.CreatedAt
	return response
}

func (s *roadmapService) History(ctx context.Context, userID string, req dto.RoadmapHistoryRequest) (dto.RoadmapHistoryResult, error) {
	filter := repository.GeneratedRoadmapFilter{
		UserID:   userID,
		Career:   roadmap.NormalizeCareer(req.Search),
		Page:     normalizePage(req.Page),
		PageSize: clampPageSize(req.PageSize),
	}

	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.RoadmapHistoryResult{}, err
	}

	items := make([]dto.RoadmapSummary, 0, len(records))
	for _, record := range records {
		items = append(items, dto.RoadmapSummary{
			ID:        record.ID,
			Career:    record.Career,
			Model:     record.Model,
			CreatedAt: record.CreatedAt,
		})
	}

	return dto.RoadmapHistoryResult{
		Items: items,
		Pagination: dto.PaginationMeta{
			Page:       filter.Page,
			PageSize:   filter.PageSize,
			TotalItems: total,
			TotalPages: calculateTotalPages(total, filter.PageSize),
		},
	}, nil
}

func (s *roadmapService) Get(ctx context.Context, userID string, id uint) (dto.RoadmapResponse, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RoadmapResponse{}, ErrRoadmapNotFound
		}
		return dto.RoadmapResponse{}, err
	}
	if record.UserID != userID {
		return dto.RoadmapResponse{}, ErrRoadmapNotFound
	}

	// Stored payloads are re-validated before they reach the renderer.
	result, err := roadmap.Parse(string(record.Payload), record.Career)
	if err != nil {
		s.logger.Error().Err(err).Uint("roadmap_id", record.ID).Msg("stored roadmap failed validation")
		return dto.RoadmapResponse{}, fmt.Errorf("stored roadmap %d: %w", record.ID, err)
	}

	return dto.RoadmapResponse{
		ID:        record.ID,
		Career:    record.Career,
		Roadmap:   result.Roadmap,
		Model:     record.Model,
		Warnings:  result.Warnings,
		CreatedAt: record.CreatedAt,
	}, nil
}

func (s *roadmapService) Mindmap(ctx context.Context, userID string, id uint) (dto.MindmapResponse, error) {
	stored, err := s.Get(ctx, userID, id)
	if err != nil {
		return dto.MindmapResponse{}, err
	}
	return dto.MindmapResponse{
		Career:  stored.Career,
		Mermaid: roadmap.RenderMindmap(stored.Roadmap),
	}, nil
}

func (s *roadmapService) RenderMindmap(ctx context.Context, document []byte) (dto.MindmapResponse, error) {
	_, span := s.tracer.Start(ctx, "roadmap.render_mindmap")
	defer span.End()

	data, err := roadmap.ValidateDocument(document)
	if err != nil {
		span.RecordError(err)
		return dto.MindmapResponse{}, err
	}
	return dto.MindmapResponse{
		Career:  data.Career,
		Mermaid: roadmap.RenderMindmap(data),
	}, nil
}

func (s *roadmapService) publish(ctx context.Context, subject string, event RoadmapEvent) {
	event.CorrelationID = middleware.CorrelationIDFromContext(ctx)
	event.OccurredAt = time.Now().UTC()
	if err := s.events.Publish(ctx, subject, event); err != nil {
		s.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish roadmap event")
	}
}

func (s *roadmapService) fetchCache(ctx context.Context, career string) (cachedRoadmap, bool) {
	if s.cache == nil {
		return cachedRoadmap{}, false
	}
	payload, err := s.cache.Get(ctx, s.cacheKey(career)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read roadmap cache")
		}
		return cachedRoadmap{}, false
	}

	var cached cachedRoadmap
	if err := json.Unmarshal([]byte(payload), &cached); err != nil {
		s.logger.Warn().Err(err).Msg("failed to decode roadmap cache")
		return cachedRoadmap{}, false
	}

	// Cached roadmaps go through the same validation as fresh completions, and the
	// career mismatch check runs against this request rather than the one that filled the entry.
	encoded, err := json.Marshal(cached.Roadmap)
	if err != nil {
		return cachedRoadmap{}, false
	}
	result, err := roadmap.Parse(string(encoded), career)
	if err != nil {
		s.logger.Warn().Err(err).Str("kind", string(roadmap.KindOf(err))).Msg("discarding invalid cached roadmap")
		if err := s.cache.Del(ctx, s.cacheKey(career)).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to evict roadmap cache")
		}
		return cachedRoadmap{}, false
	}

	cached.Career = career
	cached.Roadmap = result.Roadmap
	cached.Warnings = result.Warnings
	return cached, true
}

func (s *roadmapService) writeCache(ctx context.Context, career string, value cachedRoadmap) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode roadmap cache")
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(career), payload, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store roadmap cache")
	}
}

func (s *roadmapService) cacheKey(career string) string {
	return "roadmap:v2:" + roadmap.NormalizeCareer(career)
}
