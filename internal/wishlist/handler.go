package wishlist

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/auth"
	"github.com/wichananm65/storefront-backend/internal/i18n"
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

// RegisterRoutes mounts the wishlist under r. Guests use their session, so only sync
// requires a signed-in user.
func (h *Handler) RegisterRoutes(r fiber.Router) {
	r.Get("/wishlist", owned(h.list))
	r.Post("/wishlist", owned(h.add))
	r.Delete("/wishlist", owned(h.clear))
	r.Get("/wishlist/count", owned(h.count))
	r.Post("/wishlist/toggle", owned(h.toggle))
	r.Post("/wishlist/sync", h.sync)
	r.Get("/wishlist/:productId", owned(h.contains))
	r.Delete("/wishlist/:productId", owned(h.remove))
}

type itemRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

type syncRequest struct {
	ProductIDs []string `json:"productIds" validate:"max=200,dive,required"`
}

// owned resolves the wishlist owner before calling fn.
func owned(fn func(c *fiber.Ctx, owner string) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		o, err := auth.Owner(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "no session"})
		}
		return fn(c, o)
	}
}

func (h *Handler) list(c *fiber.Ctx, o string) error {
	items, err := h.service.List(c.UserContext(), o, i18n.Locale(c, h.defaultLocale))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"items": items, "count": len(items)})
}

func (h *Handler) add(c *fiber.Ctx, o string) error {
	payload := new(itemRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if errs := validation.Struct(payload); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}
	it, created, err := h.service.Add(c.UserContext(), o, payload.ProductID)
	if err != nil {
		return h.fail(c, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(it)
}

func (h *Handler) clear(c *fiber.Ctx, o string) error {
	if err := h.service.Clear(c.UserContext(), o); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "wishlist cleared"})
}

func (h *Handler) count(c *fiber.Ctx, o string) error {
	n, err := h.service.Count(c.UserContext(), o)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"count": n})
}

func (h *Handler) contains(c *fiber.Ctx, o string) error {
	ok, err := h.service.Contains(c.UserContext(), o, c.Params("productId"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"productId": c.Params("productId"), "inWishlist": ok})
}

func (h *Handler) remove(c *fiber.Ctx, o string) error {
	if err := h.service.Remove(c.UserContext(), o, c.Params("productId")); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"productId": c.Params("productId"), "inWishlist": false})
}

func (h *Handler) toggle(c *fiber.Ctx, o string) error {
	payload := new(itemRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if errs := validation.Struct(payload); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}
	in, err := h.service.Toggle(c.UserContext(), o, payload.ProductID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"productId": payload.ProductID, "inWishlist": in})
}

func (h *Handler) sync(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	payload := new(syncRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if errs := validation.Struct(payload); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}
	items, err := h.service.Sync(c.UserContext(), auth.UserOwner(userID), payload.ProductIDs, i18n.Locale(c, h.defaultLocale))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"items": items, "count": len(items)})
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrNotInWishlist):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
	default:
		h.log.Error("wishlist request failed", zap.Error(err), zap.String("path", c.Path()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "internal server error"})
	}
}
