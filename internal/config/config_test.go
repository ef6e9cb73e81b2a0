package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Agent.Model != "bedrock/anthropic.claude-3-5-sonnet-20241022-v2:0" {
		t.Errorf("unexpected default model %q", cfg.Agent.Model)
	}
	if cfg.Agent.MaxToolIterations != 5 {
		t.Errorf("expected maxToolIterations 5, got %d", cfg.Agent.MaxToolIterations)
	}
	if cfg.Memory.MaxMessages != 50 {
		t.Errorf("expected maxMessages 50, got %d", cfg.Memory.MaxMessages)
	}
	if cfg.Memory.RetentionHours != 2 {
		t.Errorf("expected retentionHours 2, got %d", cfg.Memory.RetentionHours)
	}
	if cfg.Tools.TimeoutSeconds != 30 {
		t.Errorf("expected tool timeout 30s, got %d", cfg.Tools.TimeoutSeconds)
	}
	if cfg.AWS.Region != "us-east-1" {
		t.Errorf("expected region us-east-1, got %s", cfg.AWS.Region)
	}
	if _, ok := cfg.Providers["bedrock"]; !ok {
		t.Error("expected bedrock provider by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := DefaultConfig()
	cfg.Agent.Model = "ollama/llama3.2"
	cfg.Memory.MaxMessages = 10
	cfg.Tools.Overrides = map[string]ToolPolicy{
		"deploy_network_function": {TimeoutSeconds: 300, MaxRetries: 0},
	}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Agent.Model != "ollama/llama3.2" {
		t.Errorf("expected model override, got %q", loaded.Agent.Model)
	}
	if loaded.Memory.MaxMessages != 10 {
		t.Errorf("expected maxMessages 10, got %d", loaded.Memory.MaxMessages)
	}
	ov, ok := loaded.Tools.Overrides["deploy_network_function"]
	if !ok || ov.TimeoutSeconds != 300 {
		t.Errorf("expected per-tool override preserved, got %+v", loaded.Tools.Overrides)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := []byte(`
agent:
  model: ollama/llama3.2
  maxToolIterations: 3
memory:
  maxMessages: 20
  retentionHours: 1
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Agent.Model != "ollama/llama3.2" {
		t.Errorf("expected yaml model, got %q", loaded.Agent.Model)
	}
	if loaded.Agent.MaxToolIterations != 3 {
		t.Errorf("expected maxToolIterations 3, got %d", loaded.Agent.MaxToolIterations)
	}
	// Untouched sections keep defaults.
	if loaded.AWS.Region != "us-east-1" {
		t.Errorf("expected default region preserved, got %s", loaded.AWS.Region)
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := []byte(`
logLevel = "debug"

[agent]
model = "bedrock/anthropic.claude-3-haiku-20240307-v1:0"
maxToolIterations = 8

[tools]
timeoutSeconds = 60
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.LogLevel != "debug" {
		t.Errorf("expected logLevel debug, got %q", loaded.LogLevel)
	}
	if loaded.Tools.TimeoutSeconds != 60 {
		t.Errorf("expected tool timeout 60, got %d", loaded.Tools.TimeoutSeconds)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.ini")
	os.WriteFile(path, []byte("x=1"), 0644)

	if _, err := Load(path); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestLoadFileNotFound(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	os.WriteFile(path, []byte("{ invalid"), 0644)

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing model", func(c *Config) { c.Agent.Model = "" }, true},
		{"bare model id", func(c *Config) { c.Agent.Model = "sonnet" }, true},
		{"zero iterations", func(c *Config) { c.Agent.MaxToolIterations = 0 }, true},
		{"auth without secret", func(c *Config) { c.Server.AuthEnabled = true }, true},
		{"unknown provider type", func(c *Config) {
			c.Providers["weird"] = ProviderConfig{Type: "telepathy"}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSaveCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deep", "nested", "config.json")

	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("save to nested path: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved config: %v", err)
	}
	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("saved config is not valid JSON: %v", err)
	}
}
