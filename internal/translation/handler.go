package translation

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/validation"
)

// maxImportSize bounds uploaded YAML files.
const maxImportSize = 1 << 20

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

// RegisterRoutes mounts the public reads and the writes behind guard.
func (h *Handler) RegisterRoutes(r fiber.Router, guard fiber.Handler) {
	r.Get("/translations", h.list)
	r.Get("/translations/:locale", h.dictionary)
	r.Post("/translations/import", guard, h.importFile)
	r.Post("/translations", guard, h.create)
	r.Put("/translations/:id", guard, h.update)
	r.Delete("/translations/:id", guard, h.delete)
}

func (h *Handler) list(c *fiber.Ctx) error {
	items, err := h.service.List(c.UserContext(), Filter{
		Locale:    c.Query("locale"),
		Namespace: c.Query("namespace"),
		Query:     c.Query("q"),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(items)
}

func (h *Handler) dictionary(c *fiber.Ctx) error {
	dict, err := h.service.Dictionary(c.UserContext(), c.Params("locale"), c.Query("namespace", DefaultNamespace))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dict)
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
	payload, err := h.parse(c)
	if payload == nil {
		return err
	}
	t, err := h.service.Create(c.UserContext(), *payload)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

func (h *Handler) update(c *fiber.Ctx) error {
	payload, err := h.parse(c)
	if payload == nil {
		return err
	}
	t, err := h.service.Update(c.UserContext(), c.Params("id"), *payload)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(t)
}

func (h *Handler) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "translation deleted"})
}

// importFile accepts a multipart "file" field or a raw YAML body; locale and namespace
// come from the query string.
func (h *Handler) importFile(c *fiber.Ctx) error {
	locale := utils.CopyString(c.Query("locale"))
	if msg := validation.Var("locale", locale, "required,bcp47_language_tag"); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": fiber.Map{"locale": msg}})
	}

	data := c.Body()
	if fh, err := c.FormFile("file"); err == nil {
		if fh.Size > maxImportSize {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"message": "file too large"})
		}
		f, err := fh.Open()
		if err != nil {
			return h.fail(c, err)
		}
		defer f.Close()
		if data, err = io.ReadAll(io.LimitReader(f, maxImportSize)); err != nil {
			return h.fail(c, err)
		}
	}
	if len(data) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "empty translation file"})
	}

	n, err := h.service.Import(c.UserContext(), locale, utils.CopyString(c.Query("namespace", DefaultNamespace)), data)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"imported": n})
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrInvalidYAML):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": err.Error()})
	default:
		h.log.Error("translation request failed", zap.Error(err), zap.String("path", c.Path()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "internal server error"})
	}
}
