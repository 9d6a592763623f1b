package storage

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler accepts back-office uploads (product images, carousel slides) into a Store.
type Handler struct {
	store Store
	log   *zap.Logger
}

func NewHandler(store Store, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{store: store, log: log}
}

// RegisterAdminRoutes expects r to be behind the admin guard.
func (h *Handler) RegisterAdminRoutes(r fiber.Router) {
	r.Post("/uploads", h.upload)
	r.Delete("/uploads/*", h.delete)
}

func (h *Handler) upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "file is required"})
	}
	if fh.Size > MaxUploadSize {
		return h.fail(c, ErrFileTooLarge)
	}
	key, err := NewKey(c.FormValue("folder"), fh.Header.Get(fiber.HeaderContentType))
	if err != nil {
		return h.fail(c, err)
	}
	f, err := fh.Open()
	if err != nil {
		return h.fail(c, err)
	}
	defer f.Close()

	url, err := h.store.Put(c.UserContext(), key, fh.Header.Get(fiber.HeaderContentType), f, fh.Size)
	if err != nil {
		return h.fail(c, err)
	}
	h.log.Info("file uploaded", zap.String("key", key), zap.Int64("size", fh.Size))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url, "key": key})
}

func (h *Handler) delete(c *fiber.Ctx) error {
	if err := h.store.Delete(c.UserContext(), c.Params("*")); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "file deleted"})
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrUnsupported):
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrFileTooLarge):
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrInvalidKey):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	default:
		h.log.Error("upload request failed", zap.Error(err), zap.String("path", c.Path()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "internal server error"})
	}
}
