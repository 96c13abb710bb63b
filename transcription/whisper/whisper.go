// Package whisper implements transcription.Provider on top of a
// faster-whisper HTTP sidecar.
package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/mediaflow/httpclient"
	"github.com/kbukum/mediaflow/transcription"
)

const (
	// ProviderName is the registered name for the Whisper provider.
	ProviderName = "whisper"

	defaultWhisperURL     = "http://localhost:8387"
	defaultWhisperModel   = "base"
	defaultWhisperTimeout = 10 * time.Minute
)

// Config holds configuration for the Whisper transcription provider.
type Config struct {
	URL      string        `mapstructure:"url" json:"url"`
	Model    string        `mapstructure:"model" json:"model"`
	Language string        `mapstructure:"language" json:"language,omitempty"`
	Timeout  time.Duration `mapstructure:"timeout" json:"timeout"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.URL == "" {
		c.URL = defaultWhisperURL
	}
	if c.Model == "" {
		c.Model = defaultWhisperModel
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultWhisperTimeout
	}
}

// Provider implements transcription.Provider.
type Provider struct {
	cfg    Config
	client *httpclient.Client
}

var _ transcription.Provider = (*Provider)(nil)

// NewProvider creates a new Whisper transcription provider.
func NewProvider(cfg Config) (*Provider, error) {
	cfg.ApplyDefaults()
	client, err := httpclient.New(httpclient.Config{
		BaseURL:        cfg.URL,
		Timeout:        cfg.Timeout,
		CircuitBreaker: httpclient.DefaultCircuitBreakerConfig(ProviderName),
	})
	if err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	return &Provider{cfg: cfg, client: client}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable checks if the Whisper sidecar is reachable.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	return p.client.Ping(ctx, "/health")
}

// Transcribe uploads the audio to the sidecar and returns the transcription.
// The audio is streamed, never held in memory as a whole.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	if req.Audio == nil {
		return nil, fmt.Errorf("whisper: no audio")
	}
	model := p.cfg.Model
	if req.Model != "" {
		model = req.Model
	}
	lang := p.cfg.Language
	if req.Language != "" {
		lang = req.Language
	}
	fileName := req.FileName
	if fileName == "" {
		fileName = "audio.wav"
	}

	fields := map[string]string{"model": model}
	if lang != "" {
		fields["language"] = lang
	}
	resp, err := p.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/transcribe",
		Body: &httpclient.MultipartBody{
			Fields: fields,
			Files:  []httpclient.FileField{{FieldName: "audio", FileName: fileName, Reader: req.Audio}},
		},
	})
	if err != nil {
		return nil, err
	}

	var result whisperResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("decode whisper response: %w", err)
	}
	return toResponse(&result), nil
}

type whisperResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
}

type whisperSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func toResponse(resp *whisperResponse) *transcription.Response {
	segments := make([]transcription.Segment, len(resp.Segments))
	for i, seg := range resp.Segments {
		segments[i] = transcription.Segment{Start: seg.Start, End: seg.End, Text: seg.Text}
	}
	var duration float64
	if len(resp.Segments) > 0 {
		duration = resp.Segments[len(resp.Segments)-1].End
	}
	return &transcription.Response{
		Text:     resp.Text,
		Segments: segments,
		Duration: duration,
		Language: resp.Language,
	}
}
