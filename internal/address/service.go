package address

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Service keeps exactly one default address per user whenever the user has any.
type Service struct {
	repo Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, log: log, now: time.Now}
}

func (s *Service) List(ctx context.Context, userID string) ([]Address, error) {
	return s.repo.List(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID, id string) (Address, error) {
	return s.repo.Get(ctx, userID, id)
}

// Default returns the user's default address or ErrNotFound.
func (s *Service) Default(ctx context.Context, userID string) (Address, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return Address{}, err
	}
	if len(items) == 0 || !items[0].IsDefault {
		return Address{}, ErrNotFound
	}
	return items[0], nil
}

func normalize(in Input) Input {
	in.Name = strings.TrimSpace(in.Name)
	in.Line1 = strings.TrimSpace(in.Line1)
	in.Line2 = strings.TrimSpace(in.Line2)
	in.City = strings.TrimSpace(in.City)
	in.PostalCode = strings.TrimSpace(in.PostalCode)
	in.Country = strings.ToUpper(strings.TrimSpace(in.Country))
	in.Phone = strings.TrimSpace(in.Phone)
	return in
}

// Create stores the address. The first address of a user always becomes the default.
func (s *Service) Create(ctx context.Context, userID string, in Input) (Address, error) {
	existing, err := s.repo.List(ctx, userID)
	if err != nil {
		return Address{}, err
	}
	now := s.now().UTC()
	a := Address{UserID: userID, CreatedAt: now, UpdatedAt: now}
	normalize(in).apply(&a)
	a.IsDefault = len(existing) == 0

	created, err := s.repo.Create(ctx, a)
	if err != nil {
		return Address{}, err
	}
	if in.IsDefault && !created.IsDefault {
		if err := s.repo.SetDefault(ctx, userID, created.ID); err != nil {
			return Address{}, err
		}
		created.IsDefault = true
	}
	return created, nil
}

// Update replaces the fields. Setting isDefault moves the default here; clearing it on the
// current default is ignored since a user with addresses always has one.
func (s *Service) Update(ctx context.Context, userID, id string, in Input) (Address, error) {
	a, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return Address{}, err
	}
	normalize(in).apply(&a)
	a.UpdatedAt = s.now().UTC()
	updated, err := s.repo.Update(ctx, a)
	if err != nil {
		return Address{}, err
	}
	if in.IsDefault && !updated.IsDefault {
		if err := s.repo.SetDefault(ctx, userID, id); err != nil {
			return Address{}, err
		}
		updated.IsDefault = true
	}
	return updated, nil
}

func (s *Service) SetDefault(ctx context.Context, userID, id string) (Address, error) {
	if err := s.repo.SetDefault(ctx, userID, id); err != nil {
		return Address{}, err
	}
	return s.repo.Get(ctx, userID, id)
}

// Delete removes the address and promotes the newest remaining one when the default goes.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	a, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	if !a.IsDefault {
		return nil
	}
	rest, err := s.repo.List(ctx, userID)
	if err != nil || len(rest) == 0 {
		return err
	}
	if err := s.repo.SetDefault(ctx, userID, rest[0].ID); err != nil {
		s.log.Warn("failed to promote default address", zap.String("userId", userID), zap.Error(err))
	}
	return nil
}
