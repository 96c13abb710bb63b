package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// CreateTransport builds the transport used by producers.
func CreateTransport(cfg *Config) (*kafka.Transport, error) {
	tc, mechanism, err := security(cfg)
	if err != nil {
		return nil, err
	}
	return &kafka.Transport{
		DialTimeout: cfg.DialTimeout,
		IdleTimeout: cfg.IdleTimeout,
		MetadataTTL: cfg.MetadataTTL,
		TLS:         tc,
		SASL:        mechanism,
	}, nil
}

// CreateDialer builds the dialer used by consumers and health checks.
func CreateDialer(cfg *Config) (*kafka.Dialer, error) {
	tc, mechanism, err := security(cfg)
	if err != nil {
		return nil, err
	}
	return &kafka.Dialer{
		Timeout:       cfg.DialTimeout,
		DualStack:     true,
		TLS:           tc,
		SASLMechanism: mechanism,
	}, nil
}

func security(cfg *Config) (*tls.Config, sasl.Mechanism, error) {
	var (
		tc        *tls.Config
		mechanism sasl.Mechanism
		err       error
	)
	if cfg.EnableTLS {
		if tc, err = buildTLSConfig(cfg); err != nil {
			return nil, nil, fmt.Errorf("TLS config: %w", err)
		}
	}
	if cfg.EnableSASL {
		if mechanism, err = buildSASLMechanism(cfg); err != nil {
			return nil, nil, fmt.Errorf("SASL config: %w", err)
		}
	}
	return tc, mechanism, nil
}

func buildTLSConfig(cfg *Config) (*tls.Config, error) {
	tc := &tls.Config{
		InsecureSkipVerify: cfg.TLSSkipVerify, //nolint:gosec // opt-in for test clusters
		MinVersion:         tls.VersionTLS12,
	}
	if cfg.TLSCAFile != "" {
		pem, err := os.ReadFile(cfg.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("parse CA certificate")
		}
		tc.RootCAs = pool
	}
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tc.Certificates = []tls.Certificate{cert}
	}
	return tc, nil
}

func buildSASLMechanism(cfg *Config) (sasl.Mechanism, error) {
	switch cfg.SASLMechanism {
	case "PLAIN":
		return plain.Mechanism{Username: cfg.Username, Password: cfg.Password}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, cfg.Username, cfg.Password)
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.SASLMechanism)
	}
}

// ResolveCompression maps a compression name to a codec. Unknown names use snappy.
func ResolveCompression(name string) kafka.Compression {
	switch name {
	case "gzip":
		return kafka.Gzip
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	case "none":
		return 0
	default:
		return kafka.Snappy
	}
}
