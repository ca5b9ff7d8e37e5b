// Package ai produces structured classifications from batch text through a
// chain of providers with a deterministic keyword fallback.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nordja/taskbridge/pkg/config"
	"github.com/nordja/taskbridge/pkg/models"
)

// ErrInvalidOutput marks a provider response that parsed but violated the
// output contract (unknown category, bad status, inconsistent subcategory).
// It demotes the attempt to a failure so the next provider runs.
var ErrInvalidOutput = errors.New("classification output violates contract")

// Provider is one classification backend. Each receives the raw batch
// context — model-backed providers render the shared prompt contract from it,
// the keyword fallback scores it directly. The chain takes the first success.
type Provider interface {
	Name() string
	Classify(ctx context.Context, batchContext string) (models.Classification, error)
}

// Meta records how a classification was produced.
type Meta struct {
	Provider         string
	FallbackOccurred bool
	Degraded         bool
	Elapsed          time.Duration
}

// Classifier runs the provider chain in order and validates each output
// against the prompt configuration.
type Classifier struct {
	providers []Provider
	prompt    *config.PromptConfig
	logger    *slog.Logger
}

// NewClassifier builds the chain. Providers are tried in the order given.
func NewClassifier(prompt *config.PromptConfig, providers ...Provider) *Classifier {
	return &Classifier{
		providers: providers,
		prompt:    prompt,
		logger:    slog.Default().With("component", "ai-classifier"),
	}
}

// Classify passes the batch context to each provider in turn. When
// every provider fails, the result is a non-activity classification with
// reason "unclassified" and Meta.Degraded set — the pipeline continues and
// emits an annotation only.
func (c *Classifier) Classify(ctx context.Context, batchContext string) (models.Classification, Meta) {
	start := time.Now()

	for i, p := range c.providers {
		result, err := p.Classify(ctx, batchContext)
		if err != nil {
			c.logger.Warn("Classification provider failed",
				"provider", p.Name(), "error", err)
			continue
		}
		if err := c.validate(&result); err != nil {
			c.logger.Warn("Classification provider output rejected",
				"provider", p.Name(), "error", err)
			continue
		}

		c.logger.Info("Classification produced",
			"provider", p.Name(),
			"is_activity", result.IsActivity,
			"category", result.Category,
			"reason", result.Reason)

		return result, Meta{
			Provider:         p.Name(),
			FallbackOccurred: i > 0,
			Elapsed:          time.Since(start),
		}
	}

	c.logger.Error("All classification providers failed")
	return models.Classification{IsActivity: false, Reason: "unclassified"}, Meta{
		Provider: "none",
		Degraded: true,
		Elapsed:  time.Since(start),
	}
}

// validate enforces the output contract and normalizes defaults in place.
func (c *Classifier) validate(result *models.Classification) error {
	if !result.IsActivity {
		return nil
	}
	if result.Category != "" && !c.prompt.HasCategory(result.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidOutput, result.Category)
	}
	if result.Status == "" {
		result.Status = models.StatusExecute
	} else if !c.prompt.HasStatus(string(result.Status)) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidOutput, result.Status)
	}
	if result.Subcategory != "" && !c.prompt.HasSubcategory(result.Category, result.Subcategory) {
		// Inconsistent subcategory is cleared rather than fatal: the
		// category alone still places the task.
		result.Subcategory = ""
	}
	return nil
}

// parseClassification decodes a provider's JSON payload into the shared
// classification shape.
func parseClassification(raw string) (models.Classification, error) {
	var result models.Classification
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return models.Classification{}, fmt.Errorf("parse classification JSON: %w", err)
	}
	return result, nil
}
