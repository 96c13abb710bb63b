package controller

import (
	"fmt"
	"strings"
)

// Config controls admission and result persistence.
type Config struct {
	// Bucket restricts executions to one bucket. Empty accepts any.
	Bucket string `mapstructure:"bucket" json:"bucket"`
	// Extensions lists the accepted media file extensions, lower case with dot.
	Extensions []string `mapstructure:"extensions" json:"extensions"`
	// MaxSize is the largest object admitted, in bytes. Zero disables the check.
	MaxSize int64 `mapstructure:"max_size" json:"max_size"`
	// OutputPrefix is where aggregated results are written. Empty disables persistence.
	OutputPrefix string `mapstructure:"output_prefix" json:"output_prefix"`
	// WriteAttempts bounds retries of the result upload.
	WriteAttempts int `mapstructure:"write_attempts" json:"write_attempts"`
}

// DefaultExtensions are the container formats the analysis services decode.
var DefaultExtensions = []string{".mp4", ".mov", ".mkv", ".webm", ".avi", ".m4v"}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if len(c.Extensions) == 0 {
		c.Extensions = DefaultExtensions
	}
	if c.OutputPrefix == "" {
		c.OutputPrefix = "output/"
	}
	if c.WriteAttempts <= 0 {
		c.WriteAttempts = 3
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") || ext != strings.ToLower(ext) {
			return fmt.Errorf("controller: extension %q must be lower case and start with a dot", ext)
		}
	}
	if c.MaxSize < 0 {
		return fmt.Errorf("controller: max_size must not be negative")
	}
	return nil
}
