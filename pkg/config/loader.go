package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	mainConfigFile   = "taskbridge.yaml"
	promptConfigFile = "prompt.yaml"
)

// Initialize loads, validates, and returns ready-to-use configuration.
//
// Steps performed:
//  1. Read taskbridge.yaml and prompt.yaml from configDir
//  2. Expand environment variables in both
//  3. Parse YAML into structs
//  4. Apply default values
//  5. Validate
func Initialize(configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := loadMain(filepath.Join(configDir, mainConfigFile))
	if err != nil {
		return nil, err
	}

	prompt, err := LoadPrompt(filepath.Join(configDir, promptConfigFile))
	if err != nil {
		return nil, err
	}
	cfg.Prompt = prompt

	cfg.applyDefaults()

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	log.Info("Configuration initialized",
		"categories", len(prompt.Categories),
		"activity_types", len(prompt.ActivityTypes),
		"status_options", len(prompt.StatusOptions),
		"gemini_enabled", cfg.AI.GeminiEnabled)

	return cfg, nil
}

func loadMain(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewLoadError(path, ErrConfigNotFound)
		}
		return nil, NewLoadError(path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(ExpandEnv(data), &cfg); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	return &cfg, nil
}

// LoadPrompt reads the declarative prompt configuration from path.
func LoadPrompt(path string) (*PromptConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewLoadError(path, ErrConfigNotFound)
		}
		return nil, NewLoadError(path, err)
	}

	var prompt PromptConfig
	if err := yaml.Unmarshal(ExpandEnv(data), &prompt); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	return &prompt, nil
}

func validate(cfg *Config) error {
	if cfg.ClickUp.Token == "" && cfg.ClickUp.TokenSecret == "" {
		return NewValidationError("clickup", "token", ErrMissingRequiredField)
	}
	if cfg.ClickUp.TeamID == "" {
		return NewValidationError("clickup", "team_id", ErrMissingRequiredField)
	}
	if cfg.ChatGuru.Endpoint == "" {
		return NewValidationError("chatguru", "endpoint", ErrMissingRequiredField)
	}
	if cfg.AI.OpenAIAPIKey == "" {
		return NewValidationError("ai", "openai_api_key", ErrMissingRequiredField)
	}
	if cfg.AI.GeminiEnabled && cfg.AI.GeminiAPIKey == "" && cfg.AI.GeminiProject == "" {
		return NewValidationError("ai", "gemini_project", ErrMissingRequiredField)
	}
	if cfg.Database.Host == "" {
		return NewValidationError("database", "host", ErrMissingRequiredField)
	}

	p := cfg.Prompt
	if p == nil {
		return NewValidationError("prompt", "", ErrMissingRequiredField)
	}
	if len(p.Categories) == 0 {
		return NewValidationError("prompt", "categories", ErrMissingRequiredField)
	}
	if len(p.StatusOptions) == 0 {
		return NewValidationError("prompt", "status_options", ErrMissingRequiredField)
	}
	if p.ResponseFormat == "" {
		return NewValidationError("prompt", "response_format", ErrMissingRequiredField)
	}
	for cat := range p.Subcategories {
		if !p.HasCategory(cat) {
			return NewValidationError("prompt", "subcategory_mappings",
				fmt.Errorf("unknown category %q", cat))
		}
	}
	return nil
}
