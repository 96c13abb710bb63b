package storage_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/storage"
	"github.com/kbukum/mediaflow/storage/local"
	"github.com/kbukum/mediaflow/storage/memory"
)

func backends(t *testing.T) map[string]storage.Storage {
	t.Helper()
	fs, err := local.NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("local.NewStorage: %v", err)
	}
	return map[string]storage.Storage{
		"local":  fs,
		"memory": memory.New(),
	}
}

func TestStorage_Contract(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.Upload(ctx, "input/interview1.mp4", bytes.NewReader([]byte("frames"))); err != nil {
				t.Fatalf("Upload: %v", err)
			}

			info, err := s.Stat(ctx, "input/interview1.mp4")
			if err != nil {
				t.Fatalf("Stat: %v", err)
			}
			if info.Size != 6 || info.Path != "input/interview1.mp4" {
				t.Errorf("unexpected info %+v", info)
			}

			rc, err := s.Download(ctx, "input/interview1.mp4")
			if err != nil {
				t.Fatalf("Download: %v", err)
			}
			data, _ := io.ReadAll(rc)
			rc.Close()
			if string(data) != "frames" {
				t.Errorf("unexpected content %q", data)
			}

			if _, err := s.Stat(ctx, "input/missing.mp4"); !errors.IsCode(err, errors.ErrCodeNotFound) {
				t.Errorf("expected NOT_FOUND from Stat, got %v", err)
			}
			if _, err := s.Download(ctx, "input/missing.mp4"); !errors.IsCode(err, errors.ErrCodeNotFound) {
				t.Errorf("expected NOT_FOUND from Download, got %v", err)
			}

			if ok, _ := s.Exists(ctx, "input/interview1.mp4"); !ok {
				t.Error("expected object to exist")
			}
			if err := s.Delete(ctx, "input/interview1.mp4"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := s.Delete(ctx, "input/interview1.mp4"); err != nil {
				t.Errorf("deleting a missing object must succeed: %v", err)
			}
			if ok, _ := s.Exists(ctx, "input/interview1.mp4"); ok {
				t.Error("expected object to be gone")
			}
		})
	}
}

func TestLocal_StaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	s, err := local.NewStorage(root)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := s.Upload(ctx, "../outside.txt", bytes.NewReader([]byte("x"))); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if ok, _ := s.Exists(ctx, "outside.txt"); !ok {
		t.Error("relative paths must be clamped to the root")
	}
}

func TestReadWriteObject(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	if err := storage.WriteObject(ctx, s, "output/a.json", []byte(`{"faces":3}`)); err != nil {
		t.Fatal(err)
	}

	data, err := storage.ReadObject(ctx, s, "output/a.json", 0)
	if err != nil || string(data) != `{"faces":3}` {
		t.Fatalf("ReadObject = %q, %v", data, err)
	}
	if _, err := storage.ReadObject(ctx, s, "output/a.json", 4); !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for oversized object, got %v", err)
	}
	if _, err := storage.ReadObject(ctx, s, "output/none.json", 0); !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestNew_Factories(t *testing.T) {
	s, err := storage.New(storage.Config{Provider: storage.ProviderMemory}, nil, logger.Nop())
	if err != nil {
		t.Fatalf("New(memory): %v", err)
	}
	if _, ok := s.(*memory.Storage); !ok {
		t.Errorf("expected *memory.Storage, got %T", s)
	}

	if _, err := storage.New(storage.Config{Provider: storage.ProviderLocal}, &local.Config{BasePath: t.TempDir()}, logger.Nop()); err != nil {
		t.Errorf("New(local): %v", err)
	}
	if _, err := storage.New(storage.Config{Provider: storage.ProviderLocal}, "wrong", logger.Nop()); err == nil {
		t.Error("expected error for mistyped provider config")
	}
	if _, err := storage.New(storage.Config{Provider: "ftp"}, nil, logger.Nop()); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestComponent_Health(t *testing.T) {
	ctx := context.Background()
	c := storage.NewComponent(storage.Config{Enabled: true, Provider: storage.ProviderMemory}, nil, logger.Nop())
	if h := c.Health(ctx); h.Status != "unhealthy" {
		t.Errorf("expected unhealthy before start, got %s", h.Status)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if h := c.Health(ctx); h.Status != "healthy" {
		t.Errorf("expected healthy, got %s: %s", h.Status, h.Message)
	}
	if c.Config().MaxFileSize != storage.DefaultMaxFileSize {
		t.Errorf("expected default max file size, got %d", c.Config().MaxFileSize)
	}
}
