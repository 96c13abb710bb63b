package main

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/mediaflow/storage"
)

func loadSample(t *testing.T) *AppConfig {
	t.Helper()
	cfg, err := loadConfig("config.yml")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestLoadConfig_Sample(t *testing.T) {
	cfg := loadSample(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config should validate: %v", err)
	}
	if cfg.Engine.CallbackURL != "http://localhost:8080/v1/callbacks" {
		t.Errorf("unexpected callback url %q", cfg.Engine.CallbackURL)
	}
	if cfg.Controller.Bucket != "media" {
		t.Errorf("controller bucket should follow the trigger bucket, got %q", cfg.Controller.Bucket)
	}
	if cfg.Engine.DefaultTimeout != 10*time.Minute {
		t.Errorf("unexpected default timeout %v", cfg.Engine.DefaultTimeout)
	}
	if cfg.Executions.TTL != 24*time.Hour || cfg.Executions.MaxConflicts != 32 {
		t.Errorf("unexpected executions config %+v", cfg.Executions)
	}
	if _, ok := cfg.Storage.ProviderConfig().(interface{ Validate() error }); !ok {
		t.Error("expected a provider config for the local backend")
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("MEDIAFLOW_ENGINE_TOKEN_SECRET", "from-the-environment-0123")
	t.Setenv("MEDIAFLOW_SERVER_PORT", "9090")

	cfg := loadSample(t)
	if cfg.Engine.TokenSecret != "from-the-environment-0123" {
		t.Errorf("expected env secret, got %q", cfg.Engine.TokenSecret)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !strings.Contains(cfg.Engine.CallbackURL, ":9090/") {
		t.Errorf("callback url should follow the port, got %q", cfg.Engine.CallbackURL)
	}
}

func TestAppConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"short secret", func(c *AppConfig) { c.Engine.TokenSecret = "short" }, "engine:"},
		{"missing sentiment url", func(c *AppConfig) { c.Analysis.SentimentDetection.URL = "" }, "analysis:"},
		{"s3 without bucket", func(c *AppConfig) {
			c.Storage.Provider = storage.ProviderS3
			c.Storage.S3.Bucket = ""
		}, "storage:"},
		{"absolute trigger prefix", func(c *AppConfig) { c.Trigger.Prefix = "/input" }, "trigger:"},
		{"kafka without trigger topic", func(c *AppConfig) {
			c.Kafka.Enabled = true
			c.Trigger.Topic = ""
		}, "topic is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadSample(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestGraphShow(t *testing.T) {
	out, err := execute(t, "graph", "show")
	if err != nil {
		t.Fatalf("graph show: %v", err)
	}
	for _, want := range []string{"FaceDetectionJob", "TranscriptionJob", "SentimentDetectionJob", "levels:", "group "} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestGraphShow_YAMLValidates(t *testing.T) {
	out, err := execute(t, "graph", "show", "--yaml")
	if err != nil {
		t.Fatalf("graph show --yaml: %v", err)
	}
	path := t.TempDir() + "/workflow.yaml"
	if err := os.WriteFile(path, []byte(out), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := execute(t, "graph", "validate", path)
	if err != nil {
		t.Fatalf("graph validate: %v", err)
	}
	if !strings.Contains(got, ": ok (") {
		t.Errorf("unexpected output %q", got)
	}
}

func TestGraphValidate_Missing(t *testing.T) {
	if _, err := execute(t, "graph", "validate", t.TempDir()+"/nope.yaml"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) == "" {
		t.Error("expected version output")
	}
}
