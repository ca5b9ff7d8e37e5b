package ai

import (
	"context"
	"strings"

	"github.com/nordja/taskbridge/pkg/models"
)

// minKeywordConfidence is the score floor below which the keyword fallback
// refuses to declare an activity.
const minKeywordConfidence = 0.5

// fallbackCategory is used when the keyword fallback identifies an activity:
// with no model available there is no basis for a finer category.
const fallbackCategory = "Outros"

// nonActivityTerms short-circuit to a non-activity classification: greetings,
// thanks, and conversational filler.
var nonActivityTerms = []string{
	"bom dia", "boa tarde", "boa noite", "oi", "olá",
	"tudo bem", "obrigado", "obrigada", "valeu", "tchau",
	"até logo", "abraço", "de nada", "por nada",
}

// activityTerms carry a weight each; the summed hits of a message become its
// activity score.
var activityTerms = map[string]float64{
	"preciso":    0.4,
	"precisa":    0.4,
	"pode":       0.2,
	"comprar":    0.5,
	"compra":     0.5,
	"agendar":    0.6,
	"marcar":     0.5,
	"pagar":      0.5,
	"pagamento":  0.5,
	"boleto":     0.5,
	"enviar":     0.4,
	"buscar":     0.4,
	"retirar":    0.5,
	"motoboy":    0.7,
	"entrega":    0.5,
	"reserva":    0.5,
	"reservar":   0.5,
	"passagem":   0.5,
	"hospedagem": 0.5,
	"consulta":   0.5,
	"exame":      0.5,
	"documento":  0.4,
	"contrato":   0.4,
	"urgente":    0.3,
	"solicito":   0.5,
	"solicitar":  0.5,
	"cotação":    0.5,
	"orçamento":  0.5,
	"emitir":     0.4,
	"renovar":    0.4,
}

// reasonPreviewLen bounds the reason derived from the raw message.
const reasonPreviewLen = 50

// KeywordProvider is the deterministic last resort: two lexicons and a
// weighted score, no network.
type KeywordProvider struct{}

// NewKeywordProvider creates the keyword fallback provider.
func NewKeywordProvider() *KeywordProvider { return &KeywordProvider{} }

// Name identifies the provider in logs and metadata.
func (p *KeywordProvider) Name() string { return "keyword-fallback" }

// Classify scores the raw batch text. A non-activity term wins outright;
// otherwise the weighted activity score must clear the confidence floor.
func (p *KeywordProvider) Classify(_ context.Context, batchContext string) (models.Classification, error) {
	lower := strings.ToLower(batchContext)
	words := wordSet(lower)

	for _, term := range nonActivityTerms {
		if containsTerm(lower, words, term) {
			return models.Classification{
				IsActivity: false,
				Reason:     "Mensagem conversacional, sem solicitação de trabalho",
			}, nil
		}
	}

	score := 0.0
	for term, weight := range activityTerms {
		if containsTerm(lower, words, term) {
			score += weight
		}
	}

	if score < minKeywordConfidence {
		return models.Classification{
			IsActivity: false,
			Reason:     "Nenhum indício de atividade identificado",
		}, nil
	}

	return models.Classification{
		IsActivity:   true,
		Reason:       "Atividade identificada: " + preview(batchContext, reasonPreviewLen),
		Category:     fallbackCategory,
		ActivityType: models.ActivityRoutine,
		Status:       models.StatusExecute,
	}, nil
}

// containsTerm matches single-word terms against whole words only — "oi"
// must not hit "depois" — and multi-word phrases by substring.
func containsTerm(lower string, words map[string]struct{}, term string) bool {
	if strings.ContainsRune(term, ' ') {
		return strings.Contains(lower, term)
	}
	_, ok := words[term]
	return ok
}

func wordSet(lower string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return r == ' ' || r == '\n' || r == '\t' || r == ',' || r == '.' ||
			r == '!' || r == '?' || r == ';' || r == ':' || r == '"'
	}) {
		words[w] = struct{}{}
	}
	return words
}

func preview(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
