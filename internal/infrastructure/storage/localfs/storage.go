package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkravets/docqa/internal/core/domain"
	"github.com/mkravets/docqa/internal/core/ports"
)

// Storage keeps uploaded files under a base directory. Paths are
// validated against traversal since they originate from request data.
type Storage struct {
	baseDir string
}

var _ ports.ObjectStorage = (*Storage)(nil)

func NewStorage(baseDir string) (*Storage, error) {
	if baseDir == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "new storage", fmt.Errorf("base dir is required"))
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, domain.WrapError(domain.ErrUnavailable, "new storage", err)
	}
	return &Storage{baseDir: baseDir}, nil
}

func (s *Storage) resolve(path string) (string, error) {
	clean := filepath.Clean(path)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve path", fmt.Errorf("invalid path %q", path))
	}
	return filepath.Join(s.baseDir, clean), nil
}

func (s *Storage) Put(ctx context.Context, path string, r io.Reader) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return domain.WrapError(domain.ErrTemporary, "store object", err)
	}
	tmp := full + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "store object", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return domain.WrapError(domain.ErrTemporary, "store object", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return domain.WrapError(domain.ErrTemporary, "store object", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return domain.WrapError(domain.ErrTemporary, "store object", err)
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "read object", err)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "read object", err)
	}
	return f, nil
}

func (s *Storage) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.WrapError(domain.ErrTemporary, "delete object", err)
	}
	return nil
}
