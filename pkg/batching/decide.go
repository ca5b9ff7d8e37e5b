// Package batching owns the per-chat message queues and the decision of when
// a burst of messages is complete and ready to process.
package batching

import (
	"fmt"
	"strings"
	"time"

	"github.com/nordja/taskbridge/pkg/models"
)

// Decision thresholds, evaluated in rule order.
const (
	silenceWindow        = 30 * time.Second
	topicChangeMinCount  = 3
	semanticSimThreshold = 0.6
	keywordSimThreshold  = 0.3
	maxQueueSize         = 8
	safetyWindow         = 180 * time.Second
)

// closingTerms mark a conversation the user considers finished. Substring
// match on the lowercased text; "obrigad" covers obrigado/obrigada.
var closingTerms = []string{
	"obrigad", "valeu", "ok", "fechado", "resolvido", "perfeito",
	"tudo bem", "beleza", "tranquilo", "pode deixar", "tchau",
	"até logo", "falou", "agradeço", "muito obrigado", "obg",
	"tá bom", "combinado", "feito", "pronto",
}

// questionStarters begin interrogative sentences in Portuguese.
var questionStarters = []string{"como", "qual", "quando", "onde", "por que", "quem"}

// confirmations is the closed set of short acknowledgement replies.
var confirmations = map[string]struct{}{
	"sim": {}, "ok": {}, "certo": {}, "entendi": {}, "perfeito": {},
	"pode ser": {}, "beleza": {}, "tranquilo": {}, "combinado": {},
	"feito": {}, "pronto": {}, "s": {}, "isso": {}, "exato": {}, "correto": {},
}

// stopwords are dropped from keyword extraction.
var stopwords = map[string]struct{}{
	"a": {}, "o": {}, "e": {}, "de": {}, "da": {}, "do": {}, "em": {},
	"um": {}, "uma": {}, "os": {}, "as": {}, "para": {}, "com": {},
	"por": {}, "que": {}, "não": {}, "mais": {}, "se": {}, "ao": {},
	"na": {}, "no": {}, "isso": {}, "este": {}, "esse": {}, "aquele": {},
	"qual": {}, "quando": {}, "onde": {}, "como": {}, "eu": {}, "você": {},
	"ele": {}, "ela": {}, "nós": {}, "vocês": {}, "eles": {}, "elas": {},
}

// audioFillers extend the stopword list for transcribed audio, which is
// noisier than typed text.
var audioFillers = map[string]struct{}{
	"aí": {}, "né": {}, "então": {}, "tipo": {}, "assim": {}, "sabe": {},
	"entendeu": {}, "aham": {}, "uhum": {}, "oi": {}, "olá": {}, "tá": {},
	"tô": {}, "vou": {}, "vai": {}, "bem": {}, "bom": {}, "boa": {},
	"legal": {}, "certo": {}, "certa": {},
}

// Decision is the outcome of evaluating a queue's contents.
type Decision struct {
	ProcessNow bool
	Reason     string
}

func wait() Decision                    { return Decision{} }
func processNow(reason string) Decision { return Decision{ProcessNow: true, Reason: reason} }

// Decide evaluates the batching rules in order against the queued messages.
// It is pure and deterministic given its inputs: the message snapshot, the
// current instant, and an optional pre-computed semantic similarity between
// the first and last message.
//
// Rule order: closing message, silence, topic change, action completion,
// safety limit. The first rule that fires decides.
func Decide(msgs []models.Message, now time.Time, semanticSim *float64) Decision {
	if len(msgs) == 0 {
		return wait()
	}

	last := msgs[len(msgs)-1]
	sinceLast := now.Sub(last.ReceivedAt)
	sinceFirst := now.Sub(msgs[0].ReceivedAt)

	// Rule 1: closing message.
	if isClosing(last.Text) {
		return processNow("mensagem de fechamento detectada")
	}

	// Rule 2: prolonged silence.
	if sinceLast > silenceWindow {
		return processNow(fmt.Sprintf("silêncio de %ds detectado", int(sinceLast.Seconds())))
	}

	// Rule 3: topic change — embeddings preferred, keyword overlap fallback.
	if len(msgs) >= topicChangeMinCount {
		if semanticSim != nil {
			if *semanticSim < semanticSimThreshold {
				return processNow(fmt.Sprintf("mudança de tópico semântico (similaridade %.1f%%)", *semanticSim*100))
			}
		} else if overlap := keywordOverlap(msgs[0], last); overlap < keywordSimThreshold {
			return processNow(fmt.Sprintf("mudança de tópico (keywords overlap %.1f%%)", overlap*100))
		}
	}

	// Rule 4: question → answer → confirmation.
	if len(msgs) >= 3 {
		q := msgs[len(msgs)-3]
		a := msgs[len(msgs)-2]
		c := msgs[len(msgs)-1]
		if isQuestion(q.Text) && !isQuestion(a.Text) && !isConfirmation(a.Text) && isConfirmation(c.Text) {
			return processNow("padrão pergunta→resposta→confirmação")
		}
	}

	// Rule 5: safety limit.
	if len(msgs) >= maxQueueSize {
		return processNow(fmt.Sprintf("%d mensagens acumuladas (limite %d)", len(msgs), maxQueueSize))
	}
	if sinceFirst > safetyWindow {
		return processNow(fmt.Sprintf("timeout de segurança (%ds)", int(sinceFirst.Seconds())))
	}

	return wait()
}

func isClosing(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range closingTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func isQuestion(text string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	lower := strings.ToLower(text)
	for _, starter := range questionStarters {
		if strings.HasPrefix(lower, starter) {
			return true
		}
	}
	return false
}

func isConfirmation(text string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	if _, ok := confirmations[trimmed]; ok {
		return true
	}
	return len(trimmed) < 10
}

// extractKeywords normalizes and tokenizes a message, dropping stopwords.
// Transcribed audio gets the filler-word extension and a longer minimum
// token length, since transcriptions carry more noise.
func extractKeywords(msg models.Message) map[string]struct{} {
	minLen := 3
	transcribed := msg.IsTranscribedAudio()
	if transcribed {
		minLen = 4
	}

	keywords := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(msg.Text)) {
		clean := strings.TrimFunc(word, func(r rune) bool {
			return !isAlphanumeric(r)
		})
		if len([]rune(clean)) < minLen {
			continue
		}
		if _, ok := stopwords[clean]; ok {
			continue
		}
		if transcribed {
			if _, ok := audioFillers[clean]; ok {
				continue
			}
		}
		keywords[clean] = struct{}{}
	}
	return keywords
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r >= 0x80
}

// keywordOverlap computes the Jaccard overlap of the keyword sets of two
// messages. An empty keyword set on either side counts as zero overlap.
func keywordOverlap(first, last models.Message) float64 {
	a := extractKeywords(first)
	b := extractKeywords(last)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
