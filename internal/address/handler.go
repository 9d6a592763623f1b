package address

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/auth"
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

// RegisterRoutes expects r to be behind authentication; handlers still check the user id.
func (h *Handler) RegisterRoutes(r fiber.Router) {
	r.Get("/addresses", h.list)
	r.Post("/addresses", h.create)
	r.Put("/addresses/:id", h.update)
	r.Delete("/addresses/:id", h.delete)
	r.Post("/addresses/:id/default", h.setDefault)
}

func (h *Handler) list(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	items, err := h.service.List(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(items)
}

func (h *Handler) parse(c *fiber.Ctx) (*Input, error) {
	payload := new(Input)
	if err := c.BodyParser(payload); err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if errs := validation.Struct(payload); errs != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}
	return payload, nil
}

func (h *Handler) create(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	payload, err := h.parse(c)
	if payload == nil {
		return err
	}
	a, err := h.service.Create(c.UserContext(), userID, *payload)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(a)
}

func (h *Handler) update(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	payload, err := h.parse(c)
	if payload == nil {
		return err
	}
	a, err := h.service.Update(c.UserContext(), userID, c.Params("id"), *payload)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(a)
}

func (h *Handler) delete(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	if err := h.service.Delete(c.UserContext(), userID, c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "address deleted"})
}

func (h *Handler) setDefault(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	a, err := h.service.SetDefault(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(a)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
	}
	h.log.Error("address request failed", zap.Error(err), zap.String("path", c.Path()))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "internal server error"})
}
