package ai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/nordja/taskbridge/pkg/config"
	"github.com/nordja/taskbridge/pkg/models"
)

const classifyMaxTokens = 500

// OpenAIProvider is the secondary text provider. It receives the same prompt
// contract as the primary and must answer with a bare JSON object.
type OpenAIProvider struct {
	client openai.Client
	prompt *config.PromptConfig
	model  string
}

// NewOpenAIProvider creates the OpenAI classification provider.
func NewOpenAIProvider(cfg config.AIConfig, prompt *config.PromptConfig) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey)),
		prompt: prompt,
		model:  cfg.OpenAIModel,
	}
}

// Name identifies the provider in logs and metadata.
func (p *OpenAIProvider) Name() string { return "openai" }

// Classify renders the shared prompt contract and sends it as a single user
// message with the JSON-object response format enforced.
func (p *OpenAIProvider) Classify(ctx context.Context, batchContext string) (models.Classification, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(p.prompt.GeneratePrompt(batchContext)),
		},
		Temperature: openai.Float(classifyTemperature),
		MaxTokens:   openai.Int(classifyMaxTokens),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return models.Classification{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return models.Classification{}, fmt.Errorf("openai chat completion: empty response")
	}
	return parseClassification(resp.Choices[0].Message.Content)
}
