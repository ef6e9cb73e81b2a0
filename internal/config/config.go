// Package config holds the agent runtime configuration: model providers,
// tool execution bounds, memory window, and the serving surfaces.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Agent     AgentConfig               `json:"agent" yaml:"agent" toml:"agent"`
	Memory    MemoryConfig              `json:"memory" yaml:"memory" toml:"memory"`
	Tools     ToolsConfig               `json:"tools" yaml:"tools" toml:"tools"`
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers" toml:"providers"`
	AWS       AWSConfig                 `json:"aws" yaml:"aws" toml:"aws"`
	Kube      KubeConfig                `json:"kubernetes" yaml:"kubernetes" toml:"kubernetes"`
	Server    ServerConfig              `json:"server" yaml:"server" toml:"server"`
	Scheduler SchedulerConfig           `json:"scheduler" yaml:"scheduler" toml:"scheduler"`
	Audit     AuditConfig               `json:"audit" yaml:"audit" toml:"audit"`
	LogLevel  string                    `json:"logLevel" yaml:"logLevel" toml:"logLevel"`
}

// AgentConfig governs the orchestrator loop.
type AgentConfig struct {
	Name string `json:"name" yaml:"name" toml:"name"`
	// Model is the primary model in "provider/model" form.
	Model          string   `json:"model" yaml:"model" toml:"model"`
	FallbackModels []string `json:"fallbackModels" yaml:"fallbackModels" toml:"fallbackModels"`
	SystemPrompt   string   `json:"systemPrompt,omitempty" yaml:"systemPrompt,omitempty" toml:"systemPrompt,omitempty"`
	MaxTokens      int      `json:"maxTokens" yaml:"maxTokens" toml:"maxTokens"`
	// MaxToolIterations bounds how many model/tool round-trips one
	// request may take.
	MaxToolIterations  int `json:"maxToolIterations" yaml:"maxToolIterations" toml:"maxToolIterations"`
	MaxConcurrentTools int `json:"maxConcurrentTools" yaml:"maxConcurrentTools" toml:"maxConcurrentTools"`
}

// MemoryConfig bounds the conversation window.
type MemoryConfig struct {
	MaxMessages    int `json:"maxMessages" yaml:"maxMessages" toml:"maxMessages"`
	RetentionHours int `json:"retentionHours" yaml:"retentionHours" toml:"retentionHours"`
}

// ToolsConfig sets the default invocation policy plus per-tool overrides.
type ToolsConfig struct {
	TimeoutSeconds        int                   `json:"timeoutSeconds" yaml:"timeoutSeconds" toml:"timeoutSeconds"`
	MaxRetries            int                   `json:"maxRetries" yaml:"maxRetries" toml:"maxRetries"`
	RetryDelayMs          int                   `json:"retryDelayMs" yaml:"retryDelayMs" toml:"retryDelayMs"`
	RetryDeclaredFailures bool                  `json:"retryDeclaredFailures" yaml:"retryDeclaredFailures" toml:"retryDeclaredFailures"`
	Overrides             map[string]ToolPolicy `json:"overrides,omitempty" yaml:"overrides,omitempty" toml:"overrides,omitempty"`
}

// ToolPolicy overrides the default policy for one tool.
type ToolPolicy struct {
	TimeoutSeconds        int  `json:"timeoutSeconds" yaml:"timeoutSeconds" toml:"timeoutSeconds"`
	MaxRetries            int  `json:"maxRetries" yaml:"maxRetries" toml:"maxRetries"`
	RetryDelayMs          int  `json:"retryDelayMs" yaml:"retryDelayMs" toml:"retryDelayMs"`
	RetryDeclaredFailures bool `json:"retryDeclaredFailures" yaml:"retryDeclaredFailures" toml:"retryDeclaredFailures"`
	// Disabled keeps the tool registered but refuses invocations.
	Disabled bool `json:"disabled,omitempty" yaml:"disabled,omitempty" toml:"disabled,omitempty"`
}

// ProviderConfig configures one model provider endpoint.
type ProviderConfig struct {
	// Type selects the implementation: "bedrock", "anthropic", "ollama".
	Type    string  `json:"type" yaml:"type" toml:"type"`
	BaseURL string  `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty" toml:"baseUrl,omitempty"`
	APIKey  string  `json:"apiKey,omitempty" yaml:"apiKey,omitempty" toml:"apiKey,omitempty"`
	Region  string  `json:"region,omitempty" yaml:"region,omitempty" toml:"region,omitempty"`
	Models  []Model `json:"models" yaml:"models" toml:"models"`
}

// Model describes one model a provider serves.
type Model struct {
	ID            string `json:"id" yaml:"id" toml:"id"`
	Name          string `json:"name" yaml:"name" toml:"name"`
	ContextWindow int    `json:"contextWindow" yaml:"contextWindow" toml:"contextWindow"`
	MaxTokens     int    `json:"maxTokens" yaml:"maxTokens" toml:"maxTokens"`
}

// AWSConfig sets the defaults AWS-backed tools start from.
type AWSConfig struct {
	Region  string `json:"region" yaml:"region" toml:"region"`
	Profile string `json:"profile,omitempty" yaml:"profile,omitempty" toml:"profile,omitempty"`
}

// KubeConfig points Kubernetes tools at a cluster.
type KubeConfig struct {
	Kubeconfig string `json:"kubeconfig,omitempty" yaml:"kubeconfig,omitempty" toml:"kubeconfig,omitempty"`
	Context    string `json:"context,omitempty" yaml:"context,omitempty" toml:"context,omitempty"`
	InCluster  bool   `json:"inCluster" yaml:"inCluster" toml:"inCluster"`
}

// ServerConfig configures the HTTP/WebSocket API.
type ServerConfig struct {
	Host        string `json:"host" yaml:"host" toml:"host"`
	Port        int    `json:"port" yaml:"port" toml:"port"`
	AuthEnabled bool   `json:"authEnabled" yaml:"authEnabled" toml:"authEnabled"`
	JWTSecret   string `json:"jwtSecret,omitempty" yaml:"jwtSecret,omitempty" toml:"jwtSecret,omitempty"`
}

// SchedulerConfig drives periodic background health probes.
type SchedulerConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" toml:"enabled"`
	// HealthCron is a cron expression for the recurring health sweep.
	HealthCron string `json:"healthCron" yaml:"healthCron" toml:"healthCron"`
}

// AuditConfig controls the invocation audit trail.
type AuditConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Path    string `json:"path" yaml:"path" toml:"path"`
}

// DefaultConfig returns a runnable default configuration: Bedrock as the
// primary provider with an Ollama fallback, moderate tool bounds, and a
// two-hour conversation window.
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Name:               "network-devops-agent",
			Model:              "bedrock/anthropic.claude-3-5-sonnet-20241022-v2:0",
			FallbackModels:     []string{"ollama/llama3.2"},
			MaxTokens:          4096,
			MaxToolIterations:  5,
			MaxConcurrentTools: 5,
		},
		Memory: MemoryConfig{
			MaxMessages:    50,
			RetentionHours: 2,
		},
		Tools: ToolsConfig{
			TimeoutSeconds: 30,
			MaxRetries:     2,
			RetryDelayMs:   500,
		},
		Providers: map[string]ProviderConfig{
			"bedrock": {
				Type:   "bedrock",
				Region: "us-east-1",
				Models: []Model{
					{
						ID:            "anthropic.claude-3-5-sonnet-20241022-v2:0",
						Name:          "Claude 3.5 Sonnet",
						ContextWindow: 200000,
						MaxTokens:     4096,
					},
				},
			},
			"ollama": {
				Type:    "ollama",
				BaseURL: "http://localhost:11434",
				Models: []Model{
					{ID: "llama3.2", Name: "Llama 3.2", ContextWindow: 8192, MaxTokens: 2048},
				},
			},
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8320,
		},
		Scheduler: SchedulerConfig{
			Enabled:    false,
			HealthCron: "@every 5m",
		},
		Audit: AuditConfig{
			Enabled: false,
			Path:    "./data/audit.db",
		},
		LogLevel: "info",
	}
}

// Load reads a config file, dispatching on extension: .json, .yaml/.yml,
// or .toml. Values not present keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as indented JSON.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if c.Agent.Model == "" {
		return fmt.Errorf("agent.model is required")
	}
	if !strings.Contains(c.Agent.Model, "/") {
		return fmt.Errorf("agent.model must be provider/model, got %q", c.Agent.Model)
	}
	if c.Agent.MaxToolIterations <= 0 {
		return fmt.Errorf("agent.maxToolIterations must be positive")
	}
	if c.Server.AuthEnabled && c.Server.JWTSecret == "" {
		return fmt.Errorf("server.jwtSecret is required when auth is enabled")
	}
	for name, p := range c.Providers {
		switch p.Type {
		case "bedrock", "anthropic", "ollama":
		default:
			return fmt.Errorf("provider %q has unknown type %q", name, p.Type)
		}
	}
	return nil
}
