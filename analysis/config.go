package analysis

import (
	"fmt"
	"time"

	"github.com/kbukum/mediaflow/transcription/whisper"
)

// Mode selects how a service is reached.
type Mode string

const (
	// ModeLocal runs the backend in this process.
	ModeLocal Mode = "local"
	// ModeRemote hands attempts to an external service with a callback.
	ModeRemote Mode = "remote"
)

// Service names as referenced by job nodes.
const (
	FaceDetection      = "face-detection"
	Transcription      = "transcription"
	SentimentDetection = "sentiment-detection"
)

// ServiceConfig configures one analysis service.
type ServiceConfig struct {
	Mode Mode `mapstructure:"mode"`
	// URL is the model server for local mode or the service for remote mode.
	URL string `mapstructure:"url"`
	// InvokePath is where remote services accept requests.
	InvokePath string        `mapstructure:"invoke_path"`
	Timeout    time.Duration `mapstructure:"timeout"`

	Concurrency int           `mapstructure:"concurrency"`
	QueueWait   time.Duration `mapstructure:"queue_wait"`
	RateLimit   float64       `mapstructure:"rate_limit"`
}

// TranscriptionConfig adds the speech-to-text provider to ServiceConfig.
type TranscriptionConfig struct {
	ServiceConfig `mapstructure:",squash"`
	// Provider names the speech-to-text provider. Defaults to whisper.
	Provider string         `mapstructure:"provider"`
	Whisper  whisper.Config `mapstructure:"whisper"`
}

// Config configures the analysis services.
type Config struct {
	FaceDetection      ServiceConfig       `mapstructure:"face_detection"`
	Transcription      TranscriptionConfig `mapstructure:"transcription"`
	SentimentDetection ServiceConfig       `mapstructure:"sentiment_detection"`
}

func (c *ServiceConfig) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeLocal
	}
	if c.InvokePath == "" {
		c.InvokePath = "/invoke"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
}

func (c *ServiceConfig) validate(name string) error {
	switch c.Mode {
	case ModeLocal, ModeRemote:
	default:
		return fmt.Errorf("analysis.%s: unknown mode %q", name, c.Mode)
	}
	if c.URL == "" && (c.Mode == ModeRemote || name != "transcription") {
		return fmt.Errorf("analysis.%s: url is required", name)
	}
	return nil
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	c.FaceDetection.applyDefaults()
	c.Transcription.applyDefaults()
	c.SentimentDetection.applyDefaults()
	if c.Transcription.Provider == "" {
		c.Transcription.Provider = whisper.ProviderName
	}
	if c.Transcription.Whisper.URL == "" {
		c.Transcription.Whisper.URL = c.Transcription.URL
	}
	c.Transcription.Whisper.ApplyDefaults()
}

// Validate checks every service.
func (c *Config) Validate() error {
	if err := c.FaceDetection.validate("face_detection"); err != nil {
		return err
	}
	if err := c.Transcription.validate("transcription"); err != nil {
		return err
	}
	return c.SentimentDetection.validate("sentiment_detection")
}
