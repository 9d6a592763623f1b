package setting

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/money"
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

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Get("/settings", h.get)
	r.Get("/currencies", h.currencies)
	r.Get("/carousels/:name", h.carousel)
}

// RegisterAdminRoutes expects r to be behind the admin guard.
func (h *Handler) RegisterAdminRoutes(r fiber.Router) {
	r.Put("/settings/site", h.updateSite)
	r.Put("/settings/shipping", h.updateShipping)
	r.Put("/currencies/:code", h.upsertCurrency)
	r.Delete("/currencies/:code", h.deleteCurrency)
	r.Post("/currencies/:code/default", h.setDefaultCurrency)
	r.Put("/carousels/:name", h.upsertCarousel)
	r.Delete("/carousels/:name", h.deleteCarousel)
}

func (h *Handler) get(c *fiber.Ctx) error {
	st, err := h.service.Get(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(st)
}

func (h *Handler) currencies(c *fiber.Ctx) error {
	st, err := h.service.Get(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(st.Currencies)
}

func (h *Handler) carousel(c *fiber.Ctx) error {
	cr, err := h.service.Carousel(c.UserContext(), c.Params("name"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(cr)
}

// bind parses and validates the body into v. A false result means the response is written.
func bind(c *fiber.Ctx, v any) (bool, error) {
	if err := c.BodyParser(v); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if errs := validation.Struct(v); errs != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}
	return true, nil
}

func (h *Handler) updateSite(c *fiber.Ctx) error {
	var in SiteInput
	if ok, err := bind(c, &in); !ok {
		return err
	}
	st, err := h.service.UpdateSite(c.UserContext(), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(st)
}

func (h *Handler) updateShipping(c *fiber.Ctx) error {
	var in ShippingInput
	if ok, err := bind(c, &in); !ok {
		return err
	}
	st, err := h.service.UpdateShipping(c.UserContext(), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(st)
}

func (h *Handler) upsertCurrency(c *fiber.Ctx) error {
	var in CurrencyInput
	if ok, err := bind(c, &in); !ok {
		return err
	}
	st, err := h.service.UpsertCurrency(c.UserContext(), utils.CopyString(c.Params("code")), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(st.Currencies)
}

func (h *Handler) deleteCurrency(c *fiber.Ctx) error {
	st, err := h.service.DeleteCurrency(c.UserContext(), c.Params("code"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(st.Currencies)
}

func (h *Handler) setDefaultCurrency(c *fiber.Ctx) error {
	st, err := h.service.SetDefaultCurrency(c.UserContext(), utils.CopyString(c.Params("code")))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(st.Currencies)
}

func (h *Handler) upsertCarousel(c *fiber.Ctx) error {
	var in CarouselInput
	if ok, err := bind(c, &in); !ok {
		return err
	}
	st, err := h.service.UpsertCarousel(c.UserContext(), utils.CopyString(c.Params("name")), in)
	if err != nil {
		return h.fail(c, err)
	}
	i, _ := st.carousel(c.Params("name"))
	return c.JSON(st.Carousels[i])
}

func (h *Handler) deleteCarousel(c *fiber.Ctx) error {
	if _, err := h.service.DeleteCarousel(c.UserContext(), c.Params("name")); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "carousel deleted"})
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, money.ErrUnknownCurrency), errors.Is(err, ErrCarouselNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrDefaultCurrency):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrInvalidCurrency), errors.Is(err, ErrInvalidRate),
		errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrDefaultLocale):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": err.Error()})
	}
	h.log.Error("settings request failed", zap.Error(err), zap.String("path", c.Path()))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "internal server error"})
}
