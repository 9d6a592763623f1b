package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local writes files below dir; the server exposes dir at /uploads. URLs are baseURL + "/" + key
// where baseURL defaults to the site-relative "/uploads".
type Local struct {
	dir     string
	baseURL string
}

func NewLocal(dir, publicBaseURL string) (*Local, error) {
	if dir == "" {
		dir = "./uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	base := strings.TrimRight(publicBaseURL, "/")
	if base == "" {
		base = "/uploads"
	}
	return &Local{dir: dir, baseURL: base}, nil
}

func (l *Local) Dir() string { return l.dir }

func (l *Local) Put(_ context.Context, key, _ string, body io.Reader, size int64) (string, error) {
	if !validKey(key) {
		return "", ErrInvalidKey
	}
	if size > MaxUploadSize {
		return "", ErrFileTooLarge
	}
	dest := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	n, err := io.Copy(f, io.LimitReader(body, MaxUploadSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxUploadSize {
		err = ErrFileTooLarge
	}
	if err != nil {
		_ = os.Remove(dest)
		return "", err
	}
	return l.baseURL + "/" + key, nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	err := os.Remove(filepath.Join(l.dir, filepath.FromSlash(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
