package local

import (
	"fmt"
	"os"
)

// DefaultBasePath is where the media tree lives in development.
const DefaultBasePath = "./data"

// Config roots the filesystem stand-in for the media bucket. Object keys
// map to paths below BasePath, so input/a.mp4 is BasePath/input/a.mp4.
type Config struct {
	BasePath string `mapstructure:"base_path" json:"base_path"`
}

func (c *Config) ApplyDefaults() {
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
}

// Validate rejects a base path that names something other than a
// directory. A missing directory is fine; NewStorage creates it.
func (c *Config) Validate() error {
	if c.BasePath == "" {
		return fmt.Errorf("local: base_path is required")
	}
	info, err := os.Stat(c.BasePath)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("local: base_path %s is not a directory", c.BasePath)
	case err != nil && !os.IsNotExist(err):
		return fmt.Errorf("local: base_path %s: %w", c.BasePath, err)
	}
	return nil
}

// GetBucket names the media root in the startup summary.
func (c *Config) GetBucket() string { return "file://" + c.BasePath }
