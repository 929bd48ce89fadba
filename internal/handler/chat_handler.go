package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/skillpath-api/internal/dto"
	"github.com/noah-isme/skillpath-api/internal/middleware"
	"github.com/noah-isme/skillpath-api/internal/service"
	"github.com/noah-isme/skillpath-api/internal/utils"
)

// ChatHandler wires chat endpoints including the websocket upgrade.
type ChatHandler struct {
	service service.ChatService
	logger  zerolog.Logger
}

// NewChatHandler creates a chat handler instance.
func NewChatHandler(service service.ChatService, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds chat routes under the provided router group. Every route needs an
// authenticated user; limiter guards message submission and may be nil.
func (h *ChatHandler) Register(router fiber.Router, limiter fiber.Handler) {
	requireUser := middleware.AuthOptions{RequireUser: true}

	router.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if middleware.UserID(c) == "" {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}
		c.Locals("request_ctx", requestContext(c))
		return c.Next()
	})

	router.Get("/ws", websocket.New(h.handleConnection))
	router.Post("/", optional(limiter), middleware.WithAuth(h.send, requireUser))
	router.Get("/history", middleware.WithAuth(h.history, requireUser))
	router.Delete("/history", middleware.WithAuth(h.clear, requireUser))
}

func (h *ChatHandler) handleConnection(conn *websocket.Conn) {
	userID, _ := conn.Locals(middleware.LocalUserID).(string)
	correlation, _ := conn.Locals("correlation_id").(string)
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	opts := service.ChatConnectionOptions{
		UserID:        userID,
		CorrelationID: correlation,
		Context:       baseCtx,
	}

	h.logger.Info().Str("user_id", userID).Str("correlation_id", correlation).Msg("chat websocket connected")
	h.service.ServeConnection(conn, opts)
	h.logger.Info().Str("user_id", userID).Str("correlation_id", correlation).Msg("chat websocket disconnected")
}

func (h *ChatHandler) send(c *fiber.Ctx) error {
	var req dto.ChatSendRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Send(requestContext(c), middleware.UserID(c), req)
	if err != nil {
		return h.writeError(c, err)
	}
	return utils.SendSuccess(c, "reply generated", result)
}

func (h *ChatHandler) history(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	messages, err := h.service.History(requestContext(c), middleware.UserID(c), dto.ChatHistoryQuery{Limit: limit})
	if err != nil {
		return h.writeError(c, err)
	}
	return utils.SendSuccess(c, "chat history", messages)
}

func (h *ChatHandler) clear(c *fiber.Ctx) error {
	if err := h.service.Clear(requestContext(c), middleware.UserID(c)); err != nil {
		return h.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ChatHandler) writeError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid chat request", validationDetails(err))
	case errors.Is(err, service.ErrChatEmptyMessage):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrChatUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrChatCompletionFailed):
		requestLogger(h.logger, c).Error().Err(err).Msg("chat provider call failed")
		return utils.Retryable(c, fiber.StatusBadGateway, "the assistant could not answer right now", nil)
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("chat request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to process chat request")
	}
}
