package kafka

import (
	"fmt"
	"time"
)

// Config holds Kafka connection and behavior configuration.
type Config struct {
	// Enabled controls whether the Kafka component is active.
	Enabled bool `mapstructure:"enabled"`

	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`

	// GroupID is the consumer group reading arrival notifications.
	GroupID string `mapstructure:"group_id"`

	// EventsTopic receives execution-finished events. Empty disables publishing.
	EventsTopic string `mapstructure:"events_topic"`

	// TLS
	EnableTLS     bool   `mapstructure:"enable_tls"`
	TLSSkipVerify bool   `mapstructure:"tls_skip_verify"`
	TLSCAFile     string `mapstructure:"tls_ca_file"`
	TLSCertFile   string `mapstructure:"tls_cert_file"`
	TLSKeyFile    string `mapstructure:"tls_key_file"`

	// SASL
	EnableSASL    bool   `mapstructure:"enable_sasl"`
	SASLMechanism string `mapstructure:"sasl_mechanism"` // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`

	// Producer settings
	Compression  string        `mapstructure:"compression"` // none, gzip, snappy, lz4, zstd
	Retries      int           `mapstructure:"retries"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`

	// Consumer settings
	SessionTimeout    time.Duration `mapstructure:"session_timeout"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  time.Duration `mapstructure:"rebalance_timeout"`
	HandlerAttempts   int           `mapstructure:"handler_attempts"`

	// Connection settings
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	MetadataTTL time.Duration `mapstructure:"metadata_ttl"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.GroupID == "" {
		c.GroupID = "mediaflow"
	}
	if c.Compression == "" {
		c.Compression = "snappy"
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.BatchTimeout <= 0 {
		// Events are sent one at a time; do not hold them for a batch.
		c.BatchTimeout = 10 * time.Millisecond
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.RequiredAcks == 0 {
		c.RequiredAcks = -1 // all replicas
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = 30 * time.Second
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 3 * time.Second
	}
	if c.RebalanceTimeout <= 0 {
		c.RebalanceTimeout = 30 * time.Second
	}
	if c.HandlerAttempts <= 0 {
		c.HandlerAttempts = 3
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Second
	}
	if c.MetadataTTL <= 0 {
		c.MetadataTTL = 6 * time.Second
	}
	if c.SASLMechanism == "" && c.EnableSASL {
		c.SASLMechanism = "PLAIN"
	}
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required")
	}
	if c.EnableSASL {
		switch c.SASLMechanism {
		case "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
		default:
			return fmt.Errorf("unsupported SASL mechanism: %s", c.SASLMechanism)
		}
		if c.Username == "" {
			return fmt.Errorf("SASL username is required")
		}
	}
	switch c.RequiredAcks {
	case -1, 0, 1:
	default:
		return fmt.Errorf("required_acks must be -1, 0 or 1, got %d", c.RequiredAcks)
	}
	if c.Retries <= 0 {
		return fmt.Errorf("retries must be > 0")
	}
	return nil
}
