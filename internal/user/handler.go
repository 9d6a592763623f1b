package user

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/auth"
	"github.com/wichananm65/storefront-backend/internal/metrics"
	"github.com/wichananm65/storefront-backend/internal/storage"
	"github.com/wichananm65/storefront-backend/internal/validation"
)

// Merger moves guest-owned data (cart, wishlist) to the signed-in owner.
type Merger func(ctx context.Context, from, to string) error

type Handler struct {
	service *Service
	tokens  *auth.Tokens
	metrics *metrics.Metrics
	mergers []Merger
	log     *zap.Logger
}

func NewHandler(s *Service, tokens *auth.Tokens, m *metrics.Metrics, log *zap.Logger, mergers ...Merger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: s, tokens: tokens, metrics: m, mergers: mergers, log: log}
}

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Post("/sign-up", h.signUp)
	r.Post("/sign-in", h.signIn)
}

// RegisterRoutes expects r to be behind authentication.
func (h *Handler) RegisterRoutes(r fiber.Router) {
	r.Get("/profile", h.getProfile)
	r.Patch("/profile", h.updateProfile)
	r.Put("/profile/password", h.changePassword)
	r.Post("/profile/avatar", h.uploadAvatar)
	r.Delete("/profile/avatar", h.removeAvatar)
}

// RegisterAdminRoutes expects r to be behind the admin guard.
func (h *Handler) RegisterAdminRoutes(r fiber.Router) {
	r.Get("/users", h.list)
	r.Patch("/users/:id/role", h.setRole)
	r.Delete("/users/:id", h.delete)
}

func bind(c *fiber.Ctx, v any) (bool, error) {
	if err := c.BodyParser(v); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if errs := validation.Struct(v); errs != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}
	return true, nil
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
}

func (h *Handler) signUp(c *fiber.Ctx) error {
	var in RegisterInput
	if ok, err := bind(c, &in); !ok {
		return err
	}
	u, err := h.service.Register(c.UserContext(), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(u)
}

func (h *Handler) signIn(c *fiber.Ctx) error {
	var in SignInInput
	if ok, err := bind(c, &in); !ok {
		return err
	}
	u, err := h.service.Authenticate(c.UserContext(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.metrics.SignIn(false)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid email or password"})
		}
		return h.fail(c, err)
	}

	token, exp, err := h.tokens.Issue(auth.Identity{UserID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return h.fail(c, err)
	}
	h.metrics.SignIn(true)

	if guest := auth.GuestOwner(c); guest != "" {
		owner := auth.UserOwner(u.ID)
		for _, merge := range h.mergers {
			if err := merge(c.UserContext(), guest, owner); err != nil {
				h.log.Warn("merge guest data failed", zap.Error(err), zap.String("user", u.ID))
			}
		}
	}

	return c.JSON(fiber.Map{
		"message":   "Login successful",
		"user":      u,
		"token":     token,
		"expiresAt": exp,
	})
}

func (h *Handler) getProfile(c *fiber.Ctx) error {
	id, err := auth.UserID(c)
	if err != nil {
		return unauthorized(c)
	}
	u, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(u)
}

func (h *Handler) updateProfile(c *fiber.Ctx) error {
	id, err := auth.UserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var in ProfileInput
	if ok, err := bind(c, &in); !ok {
		return err
	}
	u, err := h.service.UpdateProfile(c.UserContext(), id, in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(u)
}

func (h *Handler) changePassword(c *fiber.Ctx) error {
	id, err := auth.UserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var in PasswordInput
	if ok, err := bind(c, &in); !ok {
		return err
	}
	if err := h.service.ChangePassword(c.UserContext(), id, in); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": "current password is incorrect"})
		}
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "password changed"})
}

func (h *Handler) uploadAvatar(c *fiber.Ctx) error {
	id, err := auth.UserID(c)
	if err != nil {
		return unauthorized(c)
	}
	fh, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "avatar file is required"})
	}
	if fh.Size > storage.MaxUploadSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"message": storage.ErrFileTooLarge.Error()})
	}
	f, err := fh.Open()
	if err != nil {
		return h.fail(c, err)
	}
	defer f.Close()

	u, err := h.service.SetAvatar(c.UserContext(), id, fh.Header.Get(fiber.HeaderContentType), f, fh.Size)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"avatarUrl": u.AvatarURL, "user": u})
}

func (h *Handler) removeAvatar(c *fiber.Ctx) error {
	id, err := auth.UserID(c)
	if err != nil {
		return unauthorized(c)
	}
	u, err := h.service.RemoveAvatar(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"avatarUrl": nil, "user": u})
}

func (h *Handler) list(c *fiber.Ctx) error {
	p, err := h.service.List(c.UserContext(), Filter{
		Query:    c.Query("q"),
		Role:     c.Query("role"),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("pageSize", DefaultPageSize),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}

func (h *Handler) setRole(c *fiber.Ctx) error {
	var in RoleInput
	if ok, err := bind(c, &in); !ok {
		return err
	}
	u, err := h.service.SetRole(c.UserContext(), c.Params("id"), in.Role)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(u)
}

func (h *Handler) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "user deleted"})
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrEmailExists), errors.Is(err, ErrLastAdmin):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, storage.ErrUnsupported):
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, storage.ErrFileTooLarge):
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"message": err.Error()})
	default:
		h.log.Error("user request failed", zap.Error(err), zap.String("path", c.Path()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "internal server error"})
	}
}
