package batching

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordja/taskbridge/pkg/models"
)

func msgAt(text string, receivedAt time.Time) models.Message {
	return models.Message{ChatID: "chat-1", Text: text, ReceivedAt: receivedAt}
}

func TestDecide_EmptyQueueWaits(t *testing.T) {
	d := Decide(nil, time.Now(), nil)
	assert.False(t, d.ProcessNow)
}

func TestDecide_ClosingMessage(t *testing.T) {
	now := time.Now()
	msgs := []models.Message{
		msgAt("Preciso de um orçamento", now.Add(-5*time.Second)),
		msgAt("Muito obrigado, pode fechar!", now.Add(-2*time.Second)),
	}

	d := Decide(msgs, now, nil)
	require.True(t, d.ProcessNow)
	assert.Contains(t, d.Reason, "fechamento")
}

func TestDecide_Silence(t *testing.T) {
	now := time.Now()
	msgs := []models.Message{
		msgAt("Preciso agendar uma consulta para amanhã", now.Add(-45*time.Second)),
	}

	d := Decide(msgs, now, nil)
	require.True(t, d.ProcessNow)
	assert.Contains(t, d.Reason, "silêncio")
}

func TestDecide_RecentMessageWaits(t *testing.T) {
	now := time.Now()
	msgs := []models.Message{
		msgAt("Preciso agendar uma consulta para amanhã", now.Add(-5*time.Second)),
	}

	d := Decide(msgs, now, nil)
	assert.False(t, d.ProcessNow)
}

func TestDecide_TopicChangeViaEmbeddings(t *testing.T) {
	now := time.Now()
	msgs := []models.Message{
		msgAt("Preciso comprar passagens aéreas para Lisboa", now.Add(-20*time.Second)),
		msgAt("Ida e volta, saindo dia 15", now.Add(-10*time.Second)),
		msgAt("Aliás, meu cachorro precisa tomar vacina urgente", now.Add(-1*time.Second)),
	}

	low := 0.35
	d := Decide(msgs, now, &low)
	require.True(t, d.ProcessNow)
	assert.Contains(t, d.Reason, "tópico semântico")

	high := 0.85
	d = Decide(msgs, now, &high)
	assert.False(t, d.ProcessNow)
}

func TestDecide_TopicChangeRequiresThreeMessages(t *testing.T) {
	now := time.Now()
	msgs := []models.Message{
		msgAt("Preciso comprar passagens aéreas urgentes", now.Add(-10*time.Second)),
		msgAt("Vacinas do cachorro atrasadas demais", now.Add(-1*time.Second)),
	}

	low := 0.1
	d := Decide(msgs, now, &low)
	assert.False(t, d.ProcessNow)
}

func TestDecide_TopicChangeViaKeywordOverlap(t *testing.T) {
	now := time.Now()
	msgs := []models.Message{
		msgAt("preciso comprar passagens aereas urgentes lisboa", now.Add(-20*time.Second)),
		msgAt("saindo quinta pela manhã", now.Add(-10*time.Second)),
		msgAt("cachorro veterinario banho tosa agendamento", now.Add(-1*time.Second)),
	}

	d := Decide(msgs, now, nil)
	require.True(t, d.ProcessNow)
	assert.Contains(t, d.Reason, "keywords overlap")
}

func TestDecide_ActionCompletionPattern(t *testing.T) {
	now := time.Now()
	msgs := []models.Message{
		msgAt("Como criar uma conta no portal?", now.Add(-15*time.Second)),
		msgAt("Você consegue criar pela página inicial do sistema usando seu email corporativo", now.Add(-8*time.Second)),
		msgAt("entendi", now.Add(-1*time.Second)),
	}

	// High semantic similarity keeps the topic-change rule quiet so the
	// question→answer→confirmation pattern is what fires.
	high := 0.9
	d := Decide(msgs, now, &high)
	require.True(t, d.ProcessNow)
	assert.Contains(t, d.Reason, "pergunta")
}

func TestDecide_SafetyMessageLimit(t *testing.T) {
	now := time.Now()
	msgs := make([]models.Message, 0, maxQueueSize)
	for i := 0; i < maxQueueSize; i++ {
		msgs = append(msgs, msgAt(
			fmt.Sprintf("detalhe adicional numero %d sobre aquele mesmo assunto da viagem internacional", i),
			now.Add(-time.Duration(maxQueueSize-i)*time.Second)))
	}

	d := Decide(msgs, now, nil)
	require.True(t, d.ProcessNow)
	assert.Contains(t, d.Reason, "mensagens acumuladas")
}

func TestDecide_SafetyTimeWindow(t *testing.T) {
	now := time.Now()
	msgs := []models.Message{
		msgAt("primeira mensagem sobre viagem internacional planejada", now.Add(-185*time.Second)),
		msgAt("mais detalhes sobre viagem internacional planejada", now.Add(-5*time.Second)),
	}

	d := Decide(msgs, now, nil)
	require.True(t, d.ProcessNow)
	assert.Contains(t, d.Reason, "timeout de segurança")
}

func TestDecide_ClosingWinsOverSafety(t *testing.T) {
	// Eighth message is a closing: rule 1 outranks rule 5.
	now := time.Now()
	msgs := make([]models.Message, 0, maxQueueSize)
	for i := 0; i < maxQueueSize-1; i++ {
		msgs = append(msgs, msgAt(
			fmt.Sprintf("detalhe adicional numero %d sobre aquele mesmo assunto da viagem internacional", i),
			now.Add(-time.Duration(maxQueueSize-i)*time.Second)))
	}
	msgs = append(msgs, msgAt("obrigado!", now.Add(-1*time.Second)))

	d := Decide(msgs, now, nil)
	require.True(t, d.ProcessNow)
	assert.Contains(t, d.Reason, "fechamento")
}

func TestDecide_Deterministic(t *testing.T) {
	now := time.Now()
	msgs := []models.Message{
		msgAt("Preciso de um motoboy para retirar documentos hoje", now.Add(-10*time.Second)),
	}

	first := Decide(msgs, now, nil)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Decide(msgs, now, nil))
	}
}

func TestExtractKeywords_AudioFillers(t *testing.T) {
	text := "aí então tipo preciso resolver aquela transferência bancária sabe"

	plain := extractKeywords(models.Message{Text: text})
	audio := extractKeywords(models.Message{Text: text, MediaType: "audio/ogg"})

	assert.Contains(t, plain, "então")
	_, hasFiller := audio["então"]
	assert.False(t, hasFiller)
	assert.Contains(t, audio, "transferência")
}

func TestIsQuestion(t *testing.T) {
	assert.True(t, isQuestion("Como faço para criar uma tarefa?"))
	assert.True(t, isQuestion("qual o prazo disso"))
	assert.False(t, isQuestion("Segue em anexo o documento solicitado"))
}

func TestIsConfirmation(t *testing.T) {
	assert.True(t, isConfirmation("sim"))
	assert.True(t, isConfirmation("  OK  "))
	assert.True(t, isConfirmation("blz"), "short replies count as confirmations")
	assert.False(t, isConfirmation("não consigo acessar o sistema de jeito nenhum"))
}
