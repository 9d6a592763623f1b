package category

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

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

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Get("/categories", h.list)
	r.Get("/categories/:slug", h.getBySlug)
}

// RegisterAdminRoutes expects r to be guarded already.
func (h *Handler) RegisterAdminRoutes(r fiber.Router) {
	r.Get("/categories", h.adminList)
	r.Post("/categories", h.create)
	r.Put("/categories/:id", h.update)
	r.Delete("/categories/:id", h.delete)
}

func (h *Handler) list(c *fiber.Ctx) error {
	locale := i18n.Locale(c, h.defaultLocale)
	if c.QueryBool("tree") {
		tree, err := h.service.Tree(c.UserContext())
		if err != nil {
			return h.fail(c, err)
		}
		localizeTree(tree, locale)
		return c.JSON(tree)
	}
	items, err := h.service.List(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	out := make([]Category, 0, len(items))
	for _, it := range items {
		out = append(out, it.Localize(locale))
	}
	return c.JSON(out)
}

func localizeTree(nodes []*Node, locale string) {
	for _, n := range nodes {
		n.Category = n.Category.Localize(locale)
		localizeTree(n.Children, locale)
	}
}

func (h *Handler) getBySlug(c *fiber.Ctx) error {
	cat, err := h.service.GetBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(cat.Localize(i18n.Locale(c, h.defaultLocale)))
}

func (h *Handler) adminList(c *fiber.Ctx) error {
	items, err := h.service.List(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(items)
}

func (h *Handler) create(c *fiber.Ctx) error {
	payload := new(Input)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if errs := validation.Struct(payload); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}
	created, err := h.service.Create(c.UserContext(), *payload)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) update(c *fiber.Ctx) error {
	payload := new(Input)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if errs := validation.Struct(payload); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}
	updated, err := h.service.Update(c.UserContext(), c.Params("id"), *payload)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(updated)
}

func (h *Handler) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "category deleted"})
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrSlugTaken), errors.Is(err, ErrHasChildren), errors.Is(err, ErrInUse):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrInvalidSlug), errors.Is(err, ErrParentNotFound), errors.Is(err, ErrCycle), errors.Is(err, ErrTooDeep):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": err.Error()})
	default:
		h.log.Error("category request failed", zap.Error(err), zap.String("path", c.Path()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "internal server error"})
	}
}
