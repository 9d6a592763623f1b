package user

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/wichananm65/storefront-backend/internal/auth"
	"github.com/wichananm65/storefront-backend/internal/storage"
)

type Service struct {
	repo  Repository
	files storage.Store
	log   *zap.Logger
	now   func() time.Time
	cost  int
}

func NewService(repo Repository, files storage.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, files: files, log: log, now: time.Now, cost: bcrypt.DefaultCost}
}

func (s *Service) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Register creates a customer account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	email := normalizeEmail(in.Email)
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return User{}, ErrEmailExists
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	hashed, err := s.hash(in.Password)
	if err != nil {
		return User{}, err
	}
	now := s.now().UTC()
	return s.repo.Create(ctx, User{
		Email:        email,
		PasswordHash: hashed,
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		Role:         auth.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id string, in ProfileInput) (User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		u.Phone = strings.TrimSpace(*in.Phone)
	}
	u.UpdatedAt = s.now().UTC()
	return s.repo.Update(ctx, u)
}

func (s *Service) ChangePassword(ctx context.Context, id string, in PasswordInput) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Current)) != nil {
		return ErrInvalidCredentials
	}
	if u.PasswordHash, err = s.hash(in.New); err != nil {
		return err
	}
	u.UpdatedAt = s.now().UTC()
	_, err = s.repo.Update(ctx, u)
	return err
}

// SetAvatar stores the image and replaces the previous avatar, which is then removed.
func (s *Service) SetAvatar(ctx context.Context, id, contentType string, body io.Reader, size int64) (User, error) {
	if s.files == nil {
		return User{}, errors.New("no file storage configured")
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	key, err := storage.NewKey("avatars", contentType)
	if err != nil {
		return User{}, err
	}
	url, err := s.files.Put(ctx, key, contentType, body, size)
	if err != nil {
		return User{}, err
	}
	previous := u.AvatarKey
	u.AvatarURL, u.AvatarKey = url, key
	u.UpdatedAt = s.now().UTC()
	if u, err = s.repo.Update(ctx, u); err != nil {
		s.removeFile(ctx, key)
		return User{}, err
	}
	s.removeFile(ctx, previous)
	return u, nil
}

func (s *Service) RemoveAvatar(ctx context.Context, id string) (User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	previous := u.AvatarKey
	u.AvatarURL, u.AvatarKey = "", ""
	u.UpdatedAt = s.now().UTC()
	if u, err = s.repo.Update(ctx, u); err != nil {
		return User{}, err
	}
	s.removeFile(ctx, previous)
	return u, nil
}

func (s *Service) removeFile(ctx context.Context, key string) {
	if key == "" || s.files == nil {
		return
	}
	if err := s.files.Delete(ctx, key); err != nil {
		s.log.Warn("avatar cleanup failed", zap.Error(err), zap.String("key", key))
	}
}

func (s *Service) List(ctx context.Context, f Filter) (Page, error) {
	f = f.normalize()
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

// guardLastAdmin fails when u is the only remaining admin.
func (s *Service) guardLastAdmin(ctx context.Context, u User) error {
	if u.Role != auth.RoleAdmin {
		return nil
	}
	n, err := s.repo.CountByRole(ctx, auth.RoleAdmin)
	if err != nil {
		return err
	}
	if n <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func (s *Service) SetRole(ctx context.Context, id, role string) (User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if u.Role == role {
		return u, nil
	}
	if err := s.guardLastAdmin(ctx, u); err != nil {
		return User{}, err
	}
	u.Role = role
	u.UpdatedAt = s.now().UTC()
	return s.repo.Update(ctx, u)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guardLastAdmin(ctx, u); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.removeFile(ctx, u.AvatarKey)
	return nil
}

// EnsureAdmin creates the bootstrap admin, or promotes the account when the email exists.
// The password of an existing account is left unchanged.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	u, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.Role == auth.RoleAdmin {
			return u, nil
		}
		u.Role = auth.RoleAdmin
		u.UpdatedAt = s.now().UTC()
		return s.repo.Update(ctx, u)
	case !errors.Is(err, ErrNotFound):
		return User{}, err
	}

	hashed, err := s.hash(password)
	if err != nil {
		return User{}, err
	}
	now := s.now().UTC()
	u, err = s.repo.Create(ctx, User{
		Email:        email,
		PasswordHash: hashed,
		Name:         "Administrator",
		Role:         auth.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return User{}, err
	}
	s.log.Info("admin account created", zap.String("email", email))
	return u, nil
}
