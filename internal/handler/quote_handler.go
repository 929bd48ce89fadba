package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/skillpath-api/internal/service"
	"github.com/noah-isme/skillpath-api/internal/utils"
)

// QuoteHandler serves the quote ticker.
type QuoteHandler struct {
	service service.QuoteService
	now     func() time.Time
}

// NewQuoteHandler constructs a quote handler.
func NewQuoteHandler(service service.QuoteService) *QuoteHandler {
	return &QuoteHandler{service: service, now: time.Now}
}

// Register wires quote routes.
func (h *QuoteHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/current", h.current)
}

func (h *QuoteHandler) list(c *fiber.Ctx) error {
	quotes := h.service.List()
	return utils.OK(c, quotes, "quotes retrieved", fiber.Map{"total": len(quotes)})
}

func (h *QuoteHandler) current(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "quote retrieved", h.service.Current(h.now()))
}
