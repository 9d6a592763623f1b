package contact

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/validation"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(s *Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: s, log: log}
}

func (h *Handler) RegisterRoutes(r fiber.Router) {
	r.Post("/contact", h.send)
}

func (h *Handler) send(c *fiber.Ctx) error {
	var in Input
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if errs := validation.Struct(&in); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}
	if err := h.service.Send(c.UserContext(), in); err != nil {
		if errors.Is(err, ErrNoInbox) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"message": err.Error()})
		}
		h.log.Error("contact message failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"message": "message could not be sent"})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "Message sent"})
}
