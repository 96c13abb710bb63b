package analysis

import (
	"context"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/httpclient"
)

// SentimentBackend classifies transcript text with a sentiment model server.
type SentimentBackend struct {
	client *httpclient.Client
}

var _ Backend = (*SentimentBackend)(nil)

// NewSentimentBackend creates a backend on client.
func NewSentimentBackend(client *httpclient.Client) *SentimentBackend {
	return &SentimentBackend{client: client}
}

type sentimentResponse struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Name implements provider.Provider.
func (b *SentimentBackend) Name() string { return "sentiment-detection" }

// IsAvailable implements provider.Provider.
func (b *SentimentBackend) IsAvailable(ctx context.Context) bool {
	return b.client.Ping(ctx, "/health")
}

// Execute returns {"sentiment": label, "score": confidence}. An empty
// transcript is neutral without asking the model.
func (b *SentimentBackend) Execute(ctx context.Context, job Job) (map[string]any, error) {
	text, ok := job.Payload["text"].(string)
	if !ok {
		return nil, errors.InvalidInput("text", "sentiment detection needs a transcript")
	}
	if text == "" {
		return map[string]any{"sentiment": "neutral", "score": 0.0}, nil
	}
	resp, err := httpclient.Post[sentimentResponse](b.client, ctx, "/classify", map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	return map[string]any{"sentiment": resp.Data.Label, "score": resp.Data.Score}, nil
}
