package ai

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/nordja/taskbridge/pkg/config"
	"github.com/nordja/taskbridge/pkg/models"
)

const classifyTemperature = 0.1

// GeminiProvider is the primary multimodal provider, enabled by feature flag.
type GeminiProvider struct {
	client  *genai.Client
	prompt  *config.PromptConfig
	model   string
	timeout time.Duration
}

// NewGeminiProvider creates the Gemini classification provider. With an API
// key it talks to the Gemini API directly; with a project/location pair it
// goes through Vertex AI.
func NewGeminiProvider(ctx context.Context, cfg config.AIConfig, prompt *config.PromptConfig) (*GeminiProvider, error) {
	clientCfg := &genai.ClientConfig{}
	if cfg.GeminiAPIKey != "" {
		clientCfg.APIKey = cfg.GeminiAPIKey
	} else {
		clientCfg.Backend = genai.BackendVertexAI
		clientCfg.Project = cfg.GeminiProject
		clientCfg.Location = cfg.GeminiLocation
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client:  client,
		prompt:  prompt,
		model:   cfg.GeminiModel,
		timeout: cfg.PrimaryTimeout,
	}, nil
}

// Name identifies the provider in logs and metadata.
func (p *GeminiProvider) Name() string { return "gemini" }

// Classify renders the shared prompt contract and sends it as a single user
// message with JSON-only output.
func (p *GeminiProvider) Classify(ctx context.Context, batchContext string) (models.Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	fullPrompt := p.prompt.GeneratePrompt(batchContext)
	resp, err := p.client.Models.GenerateContent(ctx,
		p.model,
		[]*genai.Content{genai.NewContentFromText(fullPrompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr[float32](classifyTemperature),
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return models.Classification{}, fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return models.Classification{}, fmt.Errorf("gemini generate: empty response")
	}
	return parseClassification(text)
}
