package storage

import "fmt"

// Provider constants for supported storage backends.
const (
	ProviderLocal  = "local"
	ProviderS3     = "s3"
	ProviderMemory = "memory"
)

// Default configuration values.
const (
	DefaultProvider    = ProviderLocal
	DefaultMaxFileSize = int64(2 << 30) // 2 GiB
)

// Config holds storage configuration common to all backends.
type Config struct {
	// Enabled controls whether the storage component is active.
	Enabled bool `mapstructure:"enabled" json:"enabled"`

	// Provider selects the storage backend: "local", "s3" or "memory".
	Provider string `mapstructure:"provider" json:"provider"`

	// MaxFileSize is the largest input object accepted for analysis, in bytes.
	MaxFileSize int64 `mapstructure:"max_file_size" json:"max_file_size"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
}

// Validate checks that the configuration names a known provider.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderLocal, ProviderS3, ProviderMemory:
		return nil
	default:
		return fmt.Errorf("storage: unsupported provider %q", c.Provider)
	}
}
