package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordja/taskbridge/pkg/models"
)

func TestKeyword_NonActivityTermShortCircuits(t *testing.T) {
	p := NewKeywordProvider()

	result, err := p.Classify(context.Background(), "Bom dia, tudo bem?")
	require.NoError(t, err)
	assert.False(t, result.IsActivity)
}

func TestKeyword_ActivityAboveConfidence(t *testing.T) {
	p := NewKeywordProvider()

	result, err := p.Classify(context.Background(), "Preciso agendar a entrega com o motoboy")
	require.NoError(t, err)
	assert.True(t, result.IsActivity)
	assert.Equal(t, "Outros", result.Category)
	assert.Equal(t, models.StatusExecute, result.Status)
	assert.Contains(t, result.Reason, "Preciso agendar")
}

func TestKeyword_BelowConfidenceIsNotActivity(t *testing.T) {
	p := NewKeywordProvider()

	result, err := p.Classify(context.Background(), "segue a foto que tirei ontem")
	require.NoError(t, err)
	assert.False(t, result.IsActivity)
}

func TestKeyword_ReasonTruncated(t *testing.T) {
	p := NewKeywordProvider()
	long := "Preciso comprar urgente a passagem e agendar a consulta do exame para a viagem internacional de outubro"

	result, err := p.Classify(context.Background(), long)
	require.NoError(t, err)
	require.True(t, result.IsActivity)
	assert.LessOrEqual(t, len([]rune(result.Reason)), len("Atividade identificada: ")+reasonPreviewLen)
}
