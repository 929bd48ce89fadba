package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/skillpath-api/internal/dto"
	"github.com/noah-isme/skillpath-api/internal/middleware"
	"github.com/noah-isme/skillpath-api/internal/service"
	"github.com/noah-isme/skillpath-api/internal/utils"
	"github.com/noah-isme/skillpath-api/pkg/roadmap"
)

// RoadmapHandler exposes roadmap generation and history endpoints.
type RoadmapHandler struct {
	service service.RoadmapService
	logger  zerolog.Logger
}

// NewRoadmapHandler constructs a roadmap handler.
func NewRoadmapHandler(service service.RoadmapService, logger zerolog.Logger) *RoadmapHandler {
	return &RoadmapHandler{
		service: service,
		logger:  logger.With().Str("component", "roadmap_handler").Logger(),
	}
}

// Register wires roadmap routes. limiter guards the generation endpoints and may be nil.
func (h *RoadmapHandler) Register(router fiber.Router, limiter fiber.Handler) {
	requireUser := middleware.AuthOptions{RequireUser: true}

	router.Post("/", optional(limiter), h.generate)
	router.Get("/generate", optional(limiter), h.generateFromToken)
	router.Post("/mindmap", h.renderMindmap)
	router.Get("/", middleware.WithAuth(h.history, requireUser))
	router.Get("/:id/mindmap", middleware.WithAuth(h.mindmap, requireUser))
	router.Get("/:id", middleware.WithAuth(h.get, requireUser))
}

func (h *RoadmapHandler) generate(c *fiber.Ctx) error {
	var req dto.RoadmapGenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	return h.respondGenerate(c, req)
}

func (h *RoadmapHandler) generateFromToken(c *fiber.Ctx) error {
	req := dto.RoadmapGenerateRequest{Token: strings.TrimSpace(c.Query("token"))}
	if req.Token == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "token query parameter required")
	}
	return h.respondGenerate(c, req)
}

func (h *RoadmapHandler) respondGenerate(c *fiber.Ctx, req dto.RoadmapGenerateRequest) error {
	result, err := h.service.Generate(requestContext(c), middleware.UserID(c), req)
	if err != nil {
		return h.writeError(c, err)
	}

	message := "roadmap generated"
	if result.CacheHit {
		message = "roadmap retrieved from cache"
	}
	return utils.SendSuccess(c, message, result)
}

func (h *RoadmapHandler) history(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	result, err := h.service.History(requestContext(c), middleware.UserID(c), dto.RoadmapHistoryRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
	})
	if err != nil {
		return h.writeError(c, err)
	}

	return utils.OK(c, result.Items, "roadmap history retrieved", fiber.Map{"pagination": result.Pagination})
}

func (h *RoadmapHandler) get(c *fiber.Ctx) error {
	id, ok := parseIDParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid roadmap id")
	}

	result, err := h.service.Get(requestContext(c), middleware.UserID(c), id)
	if err != nil {
		return h.writeError(c, err)
	}
	return utils.SendSuccess(c, "roadmap retrieved", result)
}

func (h *RoadmapHandler) mindmap(c *fiber.Ctx) error {
	id, ok := parseIDParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid roadmap id")
	}

	result, err := h.service.Mindmap(requestContext(c), middleware.UserID(c), id)
	if err != nil {
		return h.writeError(c, err)
	}
	return utils.SendSuccess(c, "mindmap rendered", result)
}

func (h *RoadmapHandler) renderMindmap(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "roadmap document required")
	}

	result, err := h.service.RenderMindmap(requestContext(c), body)
	if err != nil {
		var parseErr *roadmap.ParseError
		if errors.As(err, &parseErr) {
			return utils.Fail(c, fiber.StatusUnprocessableEntity, "roadmap document is invalid", fiber.Map{
				"kind":   parseErr.Kind,
				"path":   parseErr.Path,
				"reason": parseErr.Message,
			})
		}
		return h.writeError(c, err)
	}
	return utils.SendSuccess(c, "mindmap rendered", result)
}

func (h *RoadmapHandler) writeError(c *fiber.Ctx, err error) error {
	logger := requestLogger(h.logger, c)

	var parseErr *roadmap.ParseError
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid roadmap request", validationDetails(err))
	case errors.Is(err, service.ErrCareerRequired):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCareerToken):
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrRoadmapNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrCompleterUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrCompletionFailed):
		logger.Error().Err(err).Msg("roadmap provider call failed")
		return utils.Retryable(c, fiber.StatusBadGateway, "the AI provider could not generate a roadmap", nil)
	case errors.As(err, &parseErr) && parseErr.Kind == roadmap.KindUpstreamRefusal:
		return utils.Fail(c, fiber.StatusUnprocessableEntity, parseErr.Message, fiber.Map{"kind": parseErr.Kind})
	case errors.As(err, &parseErr):
		return utils.Retryable(c, fiber.StatusBadGateway, "the AI returned an unusable roadmap, please try again", fiber.Map{
			"kind": parseErr.Kind,
			"path": parseErr.Path,
		})
	default:
		logger.Error().Err(err).Msg("roadmap request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to process roadmap request")
	}
}
