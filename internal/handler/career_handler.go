package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/skillpath-api/internal/dto"
	"github.com/noah-isme/skillpath-api/internal/middleware"
	"github.com/noah-isme/skillpath-api/internal/service"
	"github.com/noah-isme/skillpath-api/internal/utils"
)

// CareerHandler accepts the career form submission.
type CareerHandler struct {
	service service.CareerService
	logger  zerolog.Logger
}

// NewCareerHandler constructs a career handler.
func NewCareerHandler(service service.CareerService, logger zerolog.Logger) *CareerHandler {
	return &CareerHandler{
		service: service,
		logger:  logger.With().Str("component", "career_handler").Logger(),
	}
}

// Register wires career routes.
func (h *CareerHandler) Register(router fiber.Router) {
	router.Post("/", h.submit)
}

func (h *CareerHandler) submit(c *fiber.Ctx) error {
	var req dto.CareerSubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Issue(requestContext(c), middleware.UserID(c), req)
	if err != nil {
		if isValidationError(err) {
			return utils.Fail(c, fiber.StatusBadRequest, "invalid career", validationDetails(err))
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to issue career token")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to submit career")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "career submitted", result)
}
