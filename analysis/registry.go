package analysis

import (
	"fmt"

	"github.com/kbukum/mediaflow/httpclient"
	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/provider"
	"github.com/kbukum/mediaflow/storage"
	"github.com/kbukum/mediaflow/transcription"
	"github.com/kbukum/mediaflow/transcription/whisper"
)

// Services holds the configured analysis services by name.
type Services struct {
	*provider.Registry[Service]
	async []*AsyncService
}

// Wait blocks until in-process jobs have delivered their completions.
func (s *Services) Wait() {
	for _, svc := range s.async {
		svc.Wait()
	}
}

// Build creates the services described by cfg. Local transcription reads
// media through media.
func Build(cfg Config, media storage.Storage, log *logger.Logger) (*Services, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Services{Registry: provider.NewRegistry[Service]()}

	face, err := s.build(FaceDetection, cfg.FaceDetection, log, func(c *httpclient.Client) (Backend, error) {
		return NewFaceDetectionBackend(c), nil
	})
	if err != nil {
		return nil, err
	}
	speech, err := s.build(Transcription, cfg.Transcription.ServiceConfig, log, func(*httpclient.Client) (Backend, error) {
		p, err := transcriptionProvider(cfg.Transcription)
		if err != nil {
			return nil, err
		}
		return NewTranscriptionBackend(p, media, cfg.Transcription.Whisper.Language), nil
	})
	if err != nil {
		return nil, err
	}
	sentiment, err := s.build(SentimentDetection, cfg.SentimentDetection, log, func(c *httpclient.Client) (Backend, error) {
		return NewSentimentBackend(c), nil
	})
	if err != nil {
		return nil, err
	}
	s.Register(face)
	s.Register(speech)
	s.Register(sentiment)
	return s, nil
}

func (s *Services) build(name string, cfg ServiceConfig, log *logger.Logger,
	backend func(*httpclient.Client) (Backend, error)) (Service, error) {
	client, err := httpclient.New(httpclient.Config{BaseURL: cfg.URL, Timeout: cfg.Timeout})
	if err != nil {
		return nil, err
	}
	if cfg.Mode == ModeRemote {
		retrying, err := httpclient.New(httpclient.Config{
			BaseURL: cfg.URL,
			Timeout: cfg.Timeout,
			Retry:   httpclient.DefaultRetryConfig(),
		})
		if err != nil {
			return nil, err
		}
		return NewRemoteService(name, cfg.InvokePath, retrying), nil
	}

	b, err := backend(client)
	if err != nil {
		return nil, err
	}
	svc := NewAsyncService(name, b, AsyncConfig{
		Concurrency:    cfg.Concurrency,
		QueueWait:      cfg.QueueWait,
		RateLimit:      cfg.RateLimit,
		CircuitBreaker: httpclient.DefaultCircuitBreakerConfig(name),
	}, log)
	s.async = append(s.async, svc)
	return svc, nil
}

func transcriptionProvider(cfg TranscriptionConfig) (transcription.Provider, error) {
	registry := transcription.NewRegistry()
	w, err := whisper.NewProvider(cfg.Whisper)
	if err != nil {
		return nil, err
	}
	registry.Register(w)

	p, ok := registry.Get(cfg.Provider)
	if !ok {
		return nil, fmt.Errorf("analysis.transcription: unknown provider %q, have %v", cfg.Provider, registry.List())
	}
	return p, nil
}
