// Package config loads and validates the service configuration and the
// declarative AI prompt configuration from YAML files with environment
// variable expansion.
package config

import "time"

// Config is the fully loaded, validated service configuration. It is built
// once at startup and passed to components at construction; the core never
// reads environment variables directly.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	ClickUp  ClickUpConfig  `yaml:"clickup"`
	ChatGuru ChatGuruConfig `yaml:"chatguru"`
	AI       AIConfig       `yaml:"ai"`
	Queue    QueueConfig    `yaml:"queue"`

	// Prompt is loaded from its own file next to the main config.
	Prompt *PromptConfig `yaml:"-"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port    string `yaml:"port"`
	GinMode string `yaml:"gin_mode"`
}

// DatabaseConfig holds the mapping-store connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`

	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`

	ConnMaxLifetime time.Duration `yaml:"-"`
	ConnMaxIdleTime time.Duration `yaml:"-"`
}

// ClickUpConfig holds downstream task-API settings.
type ClickUpConfig struct {
	Token  string `yaml:"token"`
	TeamID string `yaml:"team_id"`
	// TokenSecret names a secret in the configured secret store; when set it
	// overrides Token at startup.
	TokenSecret string `yaml:"token_secret,omitempty"`
	BaseURL     string `yaml:"base_url,omitempty"`
}

// ChatGuruConfig holds the chat-platform annotation API settings.
type ChatGuruConfig struct {
	Token    string `yaml:"token"`
	Endpoint string `yaml:"endpoint"`
	PhoneID  string `yaml:"phone_id,omitempty"`
}

// AIConfig holds classification and media provider settings.
type AIConfig struct {
	// Gemini is the primary multimodal provider, enabled by feature flag.
	GeminiEnabled  bool   `yaml:"gemini_enabled"`
	GeminiProject  string `yaml:"gemini_project,omitempty"`
	GeminiLocation string `yaml:"gemini_location,omitempty"`
	GeminiAPIKey   string `yaml:"gemini_api_key,omitempty"`
	GeminiModel    string `yaml:"gemini_model,omitempty"`

	// OpenAI is the secondary text provider and serves media understanding.
	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model,omitempty"`
	VisionModel  string `yaml:"vision_model,omitempty"`

	// Embeddings power the topic-change signal; optional.
	EmbeddingsEnabled bool   `yaml:"embeddings_enabled"`
	EmbeddingModel    string `yaml:"embedding_model,omitempty"`

	PrimaryTimeoutRaw string        `yaml:"primary_timeout,omitempty"` // parsed to PrimaryTimeout
	PrimaryTimeout    time.Duration `yaml:"-"`
}

// QueueConfig holds message-batching settings. Durations arrive as strings
// ("10s") and are parsed during initialization.
type QueueConfig struct {
	TickIntervalRaw    string `yaml:"tick_interval,omitempty"`
	ShutdownTimeoutRaw string `yaml:"shutdown_timeout,omitempty"`

	TickInterval    time.Duration `yaml:"-"`
	ShutdownTimeout time.Duration `yaml:"-"`
}

// applyDefaults fills unset fields with their defaults.
func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.GinMode == "" {
		c.Server.GinMode = "release"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if c.Database.ConnMaxIdleTime == 0 {
		c.Database.ConnMaxIdleTime = 5 * time.Minute
	}
	if c.ClickUp.BaseURL == "" {
		c.ClickUp.BaseURL = "https://api.clickup.com/api/v2"
	}
	if c.AI.GeminiModel == "" {
		c.AI.GeminiModel = "gemini-2.0-flash"
	}
	if c.AI.OpenAIModel == "" {
		c.AI.OpenAIModel = "gpt-4o-mini"
	}
	if c.AI.VisionModel == "" {
		c.AI.VisionModel = "gpt-4o"
	}
	if c.AI.EmbeddingModel == "" {
		c.AI.EmbeddingModel = "gemini-embedding-001"
	}
	c.AI.PrimaryTimeout = parseDuration(c.AI.PrimaryTimeoutRaw, 15*time.Second)
	c.Queue.TickInterval = parseDuration(c.Queue.TickIntervalRaw, 10*time.Second)
	c.Queue.ShutdownTimeout = parseDuration(c.Queue.ShutdownTimeoutRaw, 30*time.Second)
}

// parseDuration parses a YAML duration string, falling back to the default
// when absent or invalid.
func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
