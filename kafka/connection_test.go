package kafka

import (
	"path/filepath"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

func TestResolveCompression(t *testing.T) {
	tests := []struct {
		name     string
		expected kafkago.Compression
	}{
		{"gzip", kafkago.Gzip},
		{"lz4", kafkago.Lz4},
		{"zstd", kafkago.Zstd},
		{"snappy", kafkago.Snappy},
		{"none", 0},
		{"unknown", kafkago.Snappy},
		{"", kafkago.Snappy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveCompression(tt.name); got != tt.expected {
				t.Errorf("ResolveCompression(%q) = %v, want %v", tt.name, got, tt.expected)
			}
		})
	}
}

func TestBuildSASLMechanism(t *testing.T) {
	for _, mech := range []string{"PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512"} {
		t.Run(mech, func(t *testing.T) {
			m, err := buildSASLMechanism(&Config{SASLMechanism: mech, Username: "user", Password: "pass"})
			if err != nil {
				t.Fatalf("buildSASLMechanism() error: %v", err)
			}
			if m == nil {
				t.Fatal("expected non-nil mechanism")
			}
		})
	}
	if _, err := buildSASLMechanism(&Config{SASLMechanism: "GSSAPI"}); err == nil {
		t.Error("expected error for unsupported mechanism")
	}
}

func TestCreateTransport(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	tr, err := CreateTransport(&cfg)
	if err != nil {
		t.Fatalf("CreateTransport() error: %v", err)
	}
	if tr.TLS != nil || tr.SASL != nil {
		t.Error("plain config should not set TLS or SASL")
	}
	if tr.MetadataTTL != 6*time.Second || tr.DialTimeout != 10*time.Second {
		t.Errorf("unexpected timeouts ttl=%v dial=%v", tr.MetadataTTL, tr.DialTimeout)
	}

	cfg.EnableTLS = true
	cfg.EnableSASL = true
	cfg.SASLMechanism = "PLAIN"
	cfg.Username = "user"
	tr, err = CreateTransport(&cfg)
	if err != nil {
		t.Fatalf("CreateTransport() with TLS and SASL: %v", err)
	}
	if tr.TLS == nil || tr.SASL == nil {
		t.Error("expected TLS and SASL to be set")
	}
}

func TestCreateDialer(t *testing.T) {
	cfg := Config{EnableSASL: true, SASLMechanism: "SCRAM-SHA-256", Username: "user", Password: "pass"}
	cfg.ApplyDefaults()
	d, err := CreateDialer(&cfg)
	if err != nil {
		t.Fatalf("CreateDialer() error: %v", err)
	}
	if d.SASLMechanism == nil || d.TLS != nil {
		t.Errorf("unexpected dialer security tls=%v sasl=%v", d.TLS, d.SASLMechanism)
	}
	if d.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", d.Timeout)
	}
}

func TestCreateDialer_InvalidTLS(t *testing.T) {
	cfg := Config{EnableTLS: true, TLSCAFile: filepath.Join(t.TempDir(), "missing-ca.pem")}
	if _, err := CreateDialer(&cfg); err == nil {
		t.Error("expected error for missing CA file")
	}
	if _, err := CreateTransport(&cfg); err == nil {
		t.Error("expected error for missing CA file")
	}
}
