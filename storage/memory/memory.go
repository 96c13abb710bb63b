// Package memory provides an in-process storage backend for tests and dry runs.
package memory

import (
	"bytes"
	"context"
	"io"
	"mime"
	"path/filepath"
	"sync"
	"time"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderMemory, func(storage.Config, any, *logger.Logger) (storage.Storage, error) {
		return New(), nil
	})
}

type object struct {
	data    []byte
	modTime time.Time
}

// Storage keeps objects in a map.
type Storage struct {
	mu      sync.RWMutex
	objects map[string]object
}

// New creates an empty storage.
func New() *Storage {
	return &Storage{objects: make(map[string]object)}
}

// Put stores data at path.
func (s *Storage) Put(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = object{data: bytes.Clone(data), modTime: time.Now()}
}

// Get returns a copy of the object at path.
func (s *Storage) Get(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	return bytes.Clone(obj.data), ok
}

// Upload implements storage.Storage.
func (s *Storage) Upload(_ context.Context, path string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return errors.StorageError("upload", path, err)
	}
	s.Put(path, data)
	return nil
}

// Download implements storage.Storage.
func (s *Storage) Download(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := s.Get(path)
	if !ok {
		return nil, errors.NotFound("object", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Stat implements storage.Storage.
func (s *Storage) Stat(_ context.Context, path string) (storage.FileInfo, error) {
	s.mu.RLock()
	obj, ok := s.objects[path]
	s.mu.RUnlock()
	if !ok {
		return storage.FileInfo{}, errors.NotFound("object", path)
	}
	return storage.FileInfo{
		Path:         path,
		Size:         int64(len(obj.data)),
		LastModified: obj.modTime,
		ContentType:  mime.TypeByExtension(filepath.Ext(path)),
	}, nil
}

// Delete implements storage.Storage.
func (s *Storage) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
	return nil
}

// Exists implements storage.Storage.
func (s *Storage) Exists(_ context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[path]
	return ok, nil
}

var _ storage.Storage = (*Storage)(nil)
