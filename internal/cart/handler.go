package cart

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
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

func (h *Handler) RegisterRoutes(r fiber.Router) {
	r.Get("/cart", h.getCart)
	r.Delete("/cart", h.clearCart)
	r.Post("/cart/items", h.addItem)
	r.Put("/cart/items/:productId", h.setQuantity)
	r.Delete("/cart/items/:productId", h.removeItem)
	r.Post("/cart/merge", h.merge)
}

type addRequest struct {
	ProductID string `json:"productId" validate:"required"`
	// Quantity is a delta; omitted means 1.
	Quantity *int `json:"quantity" validate:"omitempty,min=-99,max=99"`
}

type quantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0,lte=99"`
}

func (h *Handler) view(c *fiber.Ctx, owner string) error {
	v, err := h.service.View(c.UserContext(), owner, i18n.Locale(c, h.defaultLocale), strings.ToUpper(c.Query("currency")))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(v)
}

func (h *Handler) getCart(c *fiber.Ctx) error {
	owner, err := auth.Owner(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "no session"})
	}
	return h.view(c, owner)
}

func (h *Handler) clearCart(c *fiber.Ctx) error {
	owner, err := auth.Owner(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "no session"})
	}
	if err := h.service.Clear(c.UserContext(), owner); err != nil {
		return h.fail(c, err)
	}
	return h.view(c, owner)
}

func (h *Handler) addItem(c *fiber.Ctx) error {
	owner, err := auth.Owner(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "no session"})
	}
	payload := new(addRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if errs := validation.Struct(payload); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}
	delta := 1
	if payload.Quantity != nil {
		delta = *payload.Quantity
	}
	if _, err := h.service.Add(c.UserContext(), owner, payload.ProductID, delta); err != nil {
		return h.fail(c, err)
	}
	return h.view(c, owner)
}

func (h *Handler) setQuantity(c *fiber.Ctx) error {
	owner, err := auth.Owner(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "no session"})
	}
	payload := new(quantityRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if errs := validation.Struct(payload); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}
	if _, err := h.service.SetQuantity(c.UserContext(), owner, utils.CopyString(c.Params("productId")), payload.Quantity); err != nil {
		return h.fail(c, err)
	}
	return h.view(c, owner)
}

func (h *Handler) removeItem(c *fiber.Ctx) error {
	owner, err := auth.Owner(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "no session"})
	}
	if _, err := h.service.Remove(c.UserContext(), owner, c.Params("productId")); err != nil {
		return h.fail(c, err)
	}
	return h.view(c, owner)
}

// merge moves the guest session's cart into the signed-in user's cart.
func (h *Handler) merge(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	owner := auth.UserOwner(userID)
	if _, err := h.service.Merge(c.UserContext(), auth.GuestOwner(c), owner); err != nil {
		return h.fail(c, err)
	}
	return h.view(c, owner)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrItemNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrQuantityLimit):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, money.ErrUnknownCurrency):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	default:
		h.log.Error("cart request failed", zap.Error(err), zap.String("path", c.Path()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "internal server error"})
	}
}
