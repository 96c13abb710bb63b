package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Engine        struct {
		SweepInterval time.Duration `mapstructure:"sweep_interval"`
		Store         string        `mapstructure:"store"`
	} `mapstructure:"engine"`
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected logging defaults, got %+v", cfg.Logging)
		}
	})

	t.Run("production keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    ServiceConfig
		errMsg string
	}{
		{"valid", ServiceConfig{Name: "svc", Environment: "staging"}, ""},
		{"missing name", ServiceConfig{Environment: "production"}, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "qa"}, "config.environment must be one of"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %v", tc.errMsg, err)
			}
		})
	}
}

func TestLoadConfig_YAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	yamlContent := `
name: mediaflow
environment: staging
engine:
  sweep_interval: 5s
  store: memory
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("MEDIAFLOW_ENGINE_STORE", "redis")

	var cfg testConfig
	if err := LoadConfig("mediaflow", &cfg, WithConfigFile(configPath), WithEnvPrefix("mediaflow")); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "mediaflow" || cfg.Environment != "staging" {
		t.Errorf("unexpected service config %+v", cfg.ServiceConfig)
	}
	if cfg.Engine.SweepInterval != 5*time.Second {
		t.Errorf("expected 5s sweep interval, got %v", cfg.Engine.SweepInterval)
	}
	if cfg.Engine.Store != "redis" {
		t.Errorf("expected env override to win, got %q", cfg.Engine.Store)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	var cfg testConfig
	if err := LoadConfig("nonexistent", &cfg, WithConfigFile("/nonexistent/path.yml")); err != nil {
		t.Fatalf("expected missing file to be skipped, got %v", err)
	}
}

type mockFS struct {
	files  map[string]bool
	loaded []string
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error {
	m.loaded = append(m.loaded, path)
	return nil
}

func TestResolveFiles(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/mediaflow/config.yml": true,
		"./.env":                     true,
	}}
	files := ResolveFiles(fs, "mediaflow", LoaderConfig{})
	if files.ConfigFile != "./cmd/mediaflow/config.yml" {
		t.Errorf("unexpected config file %q", files.ConfigFile)
	}
	if files.EnvFile != "./.env" {
		t.Errorf("unexpected env file %q", files.EnvFile)
	}

	explicit := ResolveFiles(fs, "mediaflow", LoaderConfig{ConfigFile: "/etc/mf.yml"})
	if explicit.ConfigFile != "/etc/mf.yml" {
		t.Errorf("expected explicit path to win, got %q", explicit.ConfigFile)
	}
}

func TestLoadConfig_LoadsEnvFile(t *testing.T) {
	fs := &mockFS{files: map[string]bool{"./.env": true}}
	var cfg testConfig
	if err := LoadConfig("mediaflow", &cfg, WithFileSystem(fs)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !slices.Equal(fs.loaded, []string{"./.env"}) {
		t.Errorf("expected .env to be loaded, got %v", fs.loaded)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("ENGINE_SWEEP_INTERVAL")
	for _, want := range []string{"engine_sweep_interval", "engine.sweep.interval", "engine.sweep_interval", "engine_sweep.interval"} {
		if !slices.Contains(got, want) {
			t.Errorf("expected variant %q in %v", want, got)
		}
	}
	if got := envKeyVariants("DEBUG"); !slices.Equal(got, []string{"debug"}) {
		t.Errorf("unexpected single-part variants %v", got)
	}
}
