package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordja/taskbridge/pkg/config"
	"github.com/nordja/taskbridge/pkg/models"
)

func promptFixture() *config.PromptConfig {
	return &config.PromptConfig{
		SystemRole:      "Você é um assistente de classificação.",
		TaskDescription: "Classifique a solicitação.",
		Categories:      []string{"Logistica", "Compras", "Outros"},
		Subcategories: map[string]map[string]config.SubcategoryOption{
			"Logistica": {
				"Corrida de motoboy": {ID: "sub-1", Stars: 1},
			},
		},
		ActivityTypes: []config.ActivityTypeOption{
			{Name: "Rotineira", ID: "type-1"},
		},
		StatusOptions: []config.StatusOption{
			{Name: "Executar", ID: "status-1"},
			{Name: "Aguardando instruções", ID: "status-2"},
		},
		ResponseFormat: "Responda APENAS com JSON válido",
	}
}

type stubProvider struct {
	name   string
	result models.Classification
	err    error
	calls  int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Classify(context.Context, string) (models.Classification, error) {
	s.calls++
	return s.result, s.err
}

func TestClassify_FirstProviderWins(t *testing.T) {
	primary := &stubProvider{name: "primary", result: models.Classification{
		IsActivity: true, Reason: "Corrida de motoboy", Category: "Logistica",
		Subcategory: "Corrida de motoboy", Status: models.StatusExecute,
	}}
	secondary := &stubProvider{name: "secondary"}

	c := NewClassifier(promptFixture(), primary, secondary)
	result, meta := c.Classify(context.Background(), "Preciso de um motoboy")

	assert.True(t, result.IsActivity)
	assert.Equal(t, "primary", meta.Provider)
	assert.False(t, meta.FallbackOccurred)
	assert.False(t, meta.Degraded)
	assert.Equal(t, 0, secondary.calls)
}

func TestClassify_FallsBackOnError(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("timeout")}
	secondary := &stubProvider{name: "secondary", result: models.Classification{
		IsActivity: true, Reason: "Compra de presentes", Category: "Compras",
	}}

	c := NewClassifier(promptFixture(), primary, secondary)
	result, meta := c.Classify(context.Background(), "comprar presente")

	assert.True(t, result.IsActivity)
	assert.Equal(t, "secondary", meta.Provider)
	assert.True(t, meta.FallbackOccurred)
}

func TestClassify_InvalidCategoryDemotesProvider(t *testing.T) {
	primary := &stubProvider{name: "primary", result: models.Classification{
		IsActivity: true, Reason: "x", Category: "CategoriaInventada",
	}}
	secondary := &stubProvider{name: "secondary", result: models.Classification{
		IsActivity: true, Reason: "y", Category: "Outros",
	}}

	c := NewClassifier(promptFixture(), primary, secondary)
	result, meta := c.Classify(context.Background(), "texto")

	assert.Equal(t, "secondary", meta.Provider)
	assert.Equal(t, "Outros", result.Category)
}

func TestClassify_InvalidStatusDemotesProvider(t *testing.T) {
	primary := &stubProvider{name: "primary", result: models.Classification{
		IsActivity: true, Reason: "x", Category: "Compras", Status: "Fazendo",
	}}
	secondary := &stubProvider{name: "secondary", result: models.Classification{
		IsActivity: true, Reason: "y", Category: "Compras",
	}}

	c := NewClassifier(promptFixture(), primary, secondary)
	_, meta := c.Classify(context.Background(), "texto")
	assert.Equal(t, "secondary", meta.Provider)
}

func TestClassify_InconsistentSubcategoryCleared(t *testing.T) {
	p := &stubProvider{name: "p", result: models.Classification{
		IsActivity: true, Reason: "x", Category: "Compras",
		Subcategory: "Corrida de motoboy", // belongs to Logistica
	}}

	c := NewClassifier(promptFixture(), p)
	result, meta := c.Classify(context.Background(), "texto")

	assert.Equal(t, "p", meta.Provider)
	assert.Empty(t, result.Subcategory)
	assert.Equal(t, "Compras", result.Category)
}

func TestClassify_DefaultsStatusToExecute(t *testing.T) {
	p := &stubProvider{name: "p", result: models.Classification{
		IsActivity: true, Reason: "x", Category: "Compras",
	}}

	c := NewClassifier(promptFixture(), p)
	result, _ := c.Classify(context.Background(), "texto")
	assert.Equal(t, models.StatusExecute, result.Status)
}

func TestClassify_AllProvidersFailDegrades(t *testing.T) {
	a := &stubProvider{name: "a", err: errors.New("down")}
	b := &stubProvider{name: "b", err: errors.New("down")}

	c := NewClassifier(promptFixture(), a, b)
	result, meta := c.Classify(context.Background(), "texto")

	assert.False(t, result.IsActivity)
	assert.Equal(t, "unclassified", result.Reason)
	assert.True(t, meta.Degraded)
}

func TestClassify_NonActivitySkipsValidation(t *testing.T) {
	p := &stubProvider{name: "p", result: models.Classification{
		IsActivity: false, Reason: "Saudação", Category: "whatever",
	}}

	c := NewClassifier(promptFixture(), p)
	result, meta := c.Classify(context.Background(), "bom dia")

	assert.False(t, result.IsActivity)
	assert.False(t, meta.Degraded)
	require.Equal(t, "p", meta.Provider)
}
