// Package blob stores uploaded documents as opaque byte blobs keyed by name.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	e "github.com/gartstein/selfservice/internal/selfservice/errors"
	"go.uber.org/zap"
)

// FileStore keeps blobs as files under a root directory, one sub-directory per tenant.
type FileStore struct {
	root   string
	logger *zap.Logger
}

func NewFileStore(root string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}
	return &FileStore{root: root, logger: logger.Named("blob")}, nil
}

func (s *FileStore) Save(ctx context.Context, tenant, name string, content []byte) error {
	path, err := s.path(tenant, name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("%w: %v", e.ErrBlobStorage, err)
	}

	// Write to a temp file first so a reader never sees a partial blob.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("%w: %v", e.ErrBlobStorage, err)
	}
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", e.ErrBlobStorage, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", e.ErrBlobStorage, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", e.ErrBlobStorage, err)
	}
	s.logger.Debug("blob saved", zap.String("tenant", tenant), zap.String("name", name), zap.Int("size", len(content)))
	return nil
}

// Delete removes a blob. Deleting a missing blob is not an error.
func (s *FileStore) Delete(ctx context.Context, tenant, name string) error {
	path, err := s.path(tenant, name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", e.ErrBlobStorage, err)
	}
	return nil
}

func (s *FileStore) Exists(ctx context.Context, tenant, name string) (bool, error) {
	path, err := s.path(tenant, name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", e.ErrBlobStorage, err)
	}
}

// Read returns the blob content, or e.ErrNotFound when there is none.
func (s *FileStore) Read(ctx context.Context, tenant, name string) ([]byte, error) {
	path, err := s.path(tenant, name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: file %s", e.ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: %v", e.ErrBlobStorage, err)
	}
	return content, nil
}

func (s *FileStore) path(tenant, name string) (string, error) {
	for _, part := range []string{tenant, name} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return "", fmt.Errorf("%w: bad blob name %q", e.ErrInvalidInput, part)
		}
	}
	return filepath.Join(s.root, tenant, name), nil
}
