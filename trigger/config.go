package trigger

import (
	"fmt"
	"strings"
)

// DefaultPrefix is where uploads that should be analyzed land.
const DefaultPrefix = "input/"

// Config selects which notifications start an execution.
type Config struct {
	// Bucket is the only bucket accepted. Empty accepts any bucket.
	Bucket string `mapstructure:"bucket"`
	// Prefix limits executions to keys below it.
	Prefix string `mapstructure:"prefix"`
	// Topic carries Object Created events when Kafka is enabled.
	Topic string `mapstructure:"topic"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.Topic == "" {
		c.Topic = "s3.object-created"
	}
}

// Validate checks the prefix form.
func (c *Config) Validate() error {
	if strings.HasPrefix(c.Prefix, "/") {
		return fmt.Errorf("trigger prefix %q must be relative to the bucket", c.Prefix)
	}
	return nil
}

// Filter returns the filter described by c.
func (c Config) Filter() Filter {
	return Filter{Bucket: c.Bucket, Prefix: c.Prefix}
}
