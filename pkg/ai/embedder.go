package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/nordja/taskbridge/pkg/config"
)

// GenAIEmbedder produces text embeddings for the topic-change signal.
type GenAIEmbedder struct {
	client *genai.Client
	model  string
}

// NewGenAIEmbedder creates an embedder over the Gemini embedding API.
func NewGenAIEmbedder(ctx context.Context, cfg config.AIConfig) (*GenAIEmbedder, error) {
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
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	model := cfg.EmbeddingModel
	if model == "" {
		model = "gemini-embedding-001"
	}

	return &GenAIEmbedder{client: client, model: model}, nil
}

// Embed returns the embedding vector for one text.
func (e *GenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := e.client.Models.EmbedContent(ctx,
		e.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"},
	)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("embed content: no embeddings returned")
	}
	return result.Embeddings[0].Values, nil
}
