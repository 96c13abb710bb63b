package transcription

import (
	"context"

	"github.com/kbukum/mediaflow/provider"
)

// Provider is the interface that transcription backends must implement.
type Provider interface {
	provider.Provider

	// Transcribe sends audio for transcription and returns the result.
	Transcribe(ctx context.Context, req Request) (*Response, error)
}
