// Package storage saves uploaded files (product images, avatars, carousel slides) and returns
// the public URL they are served from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/config"
)

var (
	ErrInvalidKey   = errors.New("invalid storage key")
	ErrUnsupported  = errors.New("unsupported file type")
	ErrFileTooLarge = errors.New("file too large")
)

// MaxUploadSize bounds every upload accepted by the HTTP layer.
const MaxUploadSize = 5 << 20

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type Store interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
}

// New builds the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocal(cfg.LocalDir, cfg.PublicBaseURL)
	case "s3":
		s, err := NewS3(ctx, cfg, WithLogger(log))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// NewKey returns "<folder>/<uuid><ext>" for an allowed image content type.
func NewKey(folder, contentType string) (string, error) {
	ext, ok := allowedTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", ErrUnsupported
	}
	return path.Join(cleanFolder(folder), uuid.NewString()+ext), nil
}

func cleanFolder(folder string) string {
	folder = strings.Trim(path.Clean("/"+folder), "/")
	if folder == "" || folder == "." {
		return "misc"
	}
	return folder
}

// validKey rejects absolute keys and anything escaping the storage root.
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	clean := path.Clean(key)
	return clean == key && clean != "." && !strings.HasPrefix(clean, "../") && clean != ".."
}
