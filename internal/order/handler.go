package order

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/auth"
	"github.com/wichananm65/storefront-backend/internal/i18n"
	"github.com/wichananm65/storefront-backend/internal/money"
	"github.com/wichananm65/storefront-backend/internal/validation"
)

type Handler struct {
	service       *Service
	defaultLocale string
	log           *zap.Logger
}

func NewHandler(s *Service, defaultLocale string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: s, defaultLocale: defaultLocale, log: log}
}

// RegisterRoutes serves both guests and signed-in users; orders belong to the cart owner.
func (h *Handler) RegisterRoutes(r fiber.Router) {
	r.Post("/checkout", h.checkout)
	r.Get("/orders", h.list)
	r.Get("/orders/:id", h.get)
	r.Post("/orders/:id/cancel", h.cancel)
}

// RegisterAdminRoutes expects r to be behind the admin guard.
func (h *Handler) RegisterAdminRoutes(r fiber.Router) {
	r.Get("/orders", h.adminList)
	r.Get("/orders/:id", h.adminGet)
	r.Patch("/orders/:id/status", h.updateStatus)
}

func noSession(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "no session"})
}

func filterFrom(c *fiber.Ctx) Filter {
	return Filter{
		Status:   Status(c.Query("status")),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("pageSize", DefaultPageSize),
	}
}

func (h *Handler) checkout(c *fiber.Ctx) error {
	owner, err := auth.Owner(c)
	if err != nil {
		return noSession(c)
	}
	payload := new(CheckoutInput)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if errs := validation.Struct(payload); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}
	if payload.Email == "" {
		payload.Email = auth.Email(c)
	}
	o, err := h.service.Checkout(c.UserContext(), owner, i18n.Locale(c, h.defaultLocale), *payload)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(o)
}

func (h *Handler) list(c *fiber.Ctx) error {
	owner, err := auth.Owner(c)
	if err != nil {
		return noSession(c)
	}
	f := filterFrom(c)
	f.OwnerID = owner
	p, err := h.service.List(c.UserContext(), f)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}

func (h *Handler) get(c *fiber.Ctx) error {
	owner, err := auth.Owner(c)
	if err != nil {
		return noSession(c)
	}
	o, err := h.service.Get(c.UserContext(), owner, c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(o)
}

func (h *Handler) cancel(c *fiber.Ctx) error {
	owner, err := auth.Owner(c)
	if err != nil {
		return noSession(c)
	}
	o, err := h.service.Cancel(c.UserContext(), owner, c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(o)
}

func (h *Handler) adminList(c *fiber.Ctx) error {
	p, err := h.service.List(c.UserContext(), filterFrom(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}

func (h *Handler) adminGet(c *fiber.Ctx) error {
	o, err := h.service.GetAny(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(o)
}

func (h *Handler) updateStatus(c *fiber.Ctx) error {
	payload := new(StatusInput)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if errs := validation.Struct(payload); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}
	o, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), payload.Status)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(o)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrProductUnavailable):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrAddressRequired), errors.Is(err, ErrEmailRequired):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, money.ErrUnknownCurrency):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	default:
		h.log.Error("order request failed", zap.Error(err), zap.String("path", c.Path()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "internal server error"})
	}
}
