package kafka

import (
	"testing"
	"time"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{Enabled: true}
	cfg.ApplyDefaults()

	if len(cfg.Brokers) != 1 || cfg.Brokers[0] != "localhost:9092" {
		t.Errorf("Brokers = %v, want [localhost:9092]", cfg.Brokers)
	}
	if cfg.GroupID != "mediaflow" {
		t.Errorf("GroupID = %q, want mediaflow", cfg.GroupID)
	}
	if cfg.Compression != "snappy" {
		t.Errorf("Compression = %q, want snappy", cfg.Compression)
	}
	if cfg.Retries != 3 || cfg.HandlerAttempts != 3 {
		t.Errorf("Retries = %d, HandlerAttempts = %d, want 3", cfg.Retries, cfg.HandlerAttempts)
	}
	if cfg.RequiredAcks != -1 {
		t.Errorf("RequiredAcks = %d, want -1", cfg.RequiredAcks)
	}
	if cfg.WriteTimeout != 10*time.Second || cfg.SessionTimeout != 30*time.Second {
		t.Errorf("unexpected timeouts write=%v session=%v", cfg.WriteTimeout, cfg.SessionTimeout)
	}
	if cfg.MetadataTTL != 6*time.Second {
		t.Errorf("MetadataTTL = %v, want 6s", cfg.MetadataTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_ApplyDefaults_NoOverwrite(t *testing.T) {
	cfg := Config{
		Brokers:      []string{"broker1:9092", "broker2:9092"},
		Compression:  "gzip",
		Retries:      5,
		RequiredAcks: 1,
		WriteTimeout: time.Second,
	}
	cfg.ApplyDefaults()

	if len(cfg.Brokers) != 2 || cfg.Compression != "gzip" || cfg.Retries != 5 {
		t.Errorf("explicit values overwritten: %+v", cfg)
	}
	if cfg.RequiredAcks != 1 || cfg.WriteTimeout != time.Second {
		t.Errorf("explicit values overwritten: acks=%d write=%v", cfg.RequiredAcks, cfg.WriteTimeout)
	}
}

func TestConfig_ApplyDefaults_SASLMechanism(t *testing.T) {
	cfg := Config{EnableSASL: true}
	cfg.ApplyDefaults()
	if cfg.SASLMechanism != "PLAIN" {
		t.Errorf("SASLMechanism = %q, want PLAIN", cfg.SASLMechanism)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		cfg := Config{Enabled: true}
		cfg.ApplyDefaults()
		return cfg
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"disabled skips checks", func(c *Config) { c.Enabled = false; c.Brokers = nil }, false},
		{"no brokers", func(c *Config) { c.Brokers = nil }, true},
		{"bad mechanism", func(c *Config) { c.EnableSASL = true; c.SASLMechanism = "GSSAPI"; c.Username = "u" }, true},
		{"sasl without user", func(c *Config) { c.EnableSASL = true; c.SASLMechanism = "PLAIN" }, true},
		{"scram", func(c *Config) { c.EnableSASL = true; c.SASLMechanism = "SCRAM-SHA-512"; c.Username = "u" }, false},
		{"bad acks", func(c *Config) { c.RequiredAcks = 2 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
