package local

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderLocal, func(_ storage.Config, providerCfg any, _ *logger.Logger) (storage.Storage, error) {
		c := &Config{}
		if providerCfg != nil {
			pc, ok := providerCfg.(*Config)
			if !ok {
				return nil, fmt.Errorf("local: expected *local.Config, got %T", providerCfg)
			}
			c = pc
		}
		c.ApplyDefaults()
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return NewStorage(c.BasePath)
	})
}

// Storage implements storage.Storage using the local filesystem.
type Storage struct {
	basePath string
}

// NewStorage creates a new local filesystem storage rooted at basePath.
func NewStorage(basePath string) (*Storage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create base directory: %w", err)
	}
	return &Storage{basePath: abs}, nil
}

// resolve maps an object path below the base directory.
func (s *Storage) resolve(path string) (string, error) {
	full := filepath.Join(s.basePath, filepath.Clean("/"+path))
	if full != s.basePath && !strings.HasPrefix(full, s.basePath+string(filepath.Separator)) {
		return "", errors.InvalidInput("path", "escapes the storage root")
	}
	return full, nil
}

// Upload writes data from reader to a local file.
func (s *Storage) Upload(_ context.Context, path string, reader io.Reader) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return errors.StorageError("upload", path, err)
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return errors.StorageError("upload", path, err)
	}
	defer f.Close() //nolint:errcheck // write errors surface through io.Copy

	if _, err := io.Copy(f, reader); err != nil {
		return errors.StorageError("upload", path, err)
	}
	return nil
}

// Download returns a reader for the local file at the given path.
func (s *Storage) Download(_ context.Context, path string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("object", path)
		}
		return nil, errors.StorageError("download", path, err)
	}
	return f, nil
}

// Stat returns metadata for the local file.
func (s *Storage) Stat(_ context.Context, path string) (storage.FileInfo, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return storage.FileInfo{}, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return storage.FileInfo{}, errors.NotFound("object", path)
		}
		return storage.FileInfo{}, errors.StorageError("stat", path, err)
	}
	if info.IsDir() {
		return storage.FileInfo{}, errors.NotFound("object", path)
	}
	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return storage.FileInfo{Path: path, Size: info.Size(), LastModified: info.ModTime(), ContentType: ct}, nil
}

// Delete removes a local file. Returns nil if the file does not exist.
func (s *Storage) Delete(_ context.Context, path string) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return errors.StorageError("delete", path, err)
	}
	return nil
}

// Exists checks whether a local file exists.
func (s *Storage) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.Stat(ctx, path)
	switch {
	case err == nil:
		return true, nil
	case errors.IsCode(err, errors.ErrCodeNotFound):
		return false, nil
	default:
		return false, err
	}
}

var _ storage.Storage = (*Storage)(nil)
