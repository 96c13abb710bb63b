package analysis

import (
	"context"
	"path"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/storage"
	"github.com/kbukum/mediaflow/transcription"
)

// TranscriptionBackend streams the input object from storage to a
// speech-to-text provider.
type TranscriptionBackend struct {
	provider transcription.Provider
	storage  storage.Storage
	language string
}

var _ Backend = (*TranscriptionBackend)(nil)

// NewTranscriptionBackend creates a backend reading media from s.
func NewTranscriptionBackend(p transcription.Provider, s storage.Storage, language string) *TranscriptionBackend {
	return &TranscriptionBackend{provider: p, storage: s, language: language}
}

// Name implements provider.Provider.
func (b *TranscriptionBackend) Name() string { return "transcription" }

// IsAvailable implements provider.Provider.
func (b *TranscriptionBackend) IsAvailable(ctx context.Context) bool {
	return b.provider.IsAvailable(ctx)
}

// Execute returns {"text", "language", "duration"}.
func (b *TranscriptionBackend) Execute(ctx context.Context, job Job) (map[string]any, error) {
	key, ok := job.stringField("key")
	if !ok {
		return nil, errors.InvalidInput("key", "transcription needs an object key")
	}
	rc, err := b.storage.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	resp, err := b.provider.Transcribe(ctx, transcription.Request{
		Audio:    rc,
		FileName: path.Base(key),
		Language: b.language,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"text":     resp.Text,
		"language": resp.Language,
		"duration": resp.Duration,
	}, nil
}
