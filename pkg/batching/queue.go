package batching

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/nordja/taskbridge/pkg/models"
)

// embeddingMinTextLen is the shortest text worth an embedding call.
const embeddingMinTextLen = 10

// BatchCallback receives a drained batch. Fired on its own goroutine;
// messages arrive in enqueue order for the chat.
type BatchCallback func(chatID string, msgs []models.Message)

// Embedder produces text embeddings for the semantic topic-change signal.
// Optional: a nil Embedder makes Decide fall back to keyword overlap.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// chatQueue holds one chat's pending messages in arrival order. The first
// message's ReceivedAt doubles as the queue's start instant.
type chatQueue struct {
	messages []models.Message
}

// Queue maintains one FIFO per chat behind a single write lock and flushes
// batches when the decision rules fire — inline on enqueue, or from the
// periodic ticker re-check.
type Queue struct {
	mu     sync.RWMutex
	queues map[string]*chatQueue

	callback BatchCallback
	embedder Embedder
	interval time.Duration
	logger   *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	inflight sync.WaitGroup
	now      func() time.Time
}

// NewQueue creates a message queue. The callback is bound at construction;
// there is no back-pointer from the queue to the orchestrator.
func NewQueue(interval time.Duration, embedder Embedder, callback BatchCallback) *Queue {
	return &Queue{
		queues:   make(map[string]*chatQueue),
		callback: callback,
		embedder: embedder,
		interval: interval,
		logger:   slog.Default().With("component", "message-queue"),
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}
}

// Enqueue appends a message to its chat's queue, creating the queue on
// demand, and evaluates the decision rules with the current contents. A
// ProcessNow decision drains the queue under the same write lock and
// dispatches the batch on a fresh goroutine — the caller never blocks on
// downstream work.
func (q *Queue) Enqueue(ctx context.Context, msg models.Message) {
	similarity := q.semanticSimilarity(ctx, msg)

	q.mu.Lock()
	cq, ok := q.queues[msg.ChatID]
	if !ok {
		cq = &chatQueue{}
		q.queues[msg.ChatID] = cq
	}
	cq.messages = append(cq.messages, msg)
	size := len(cq.messages)

	decision := Decide(cq.messages, q.now(), similarity)
	var batch []models.Message
	if decision.ProcessNow {
		batch = cq.messages
		delete(q.queues, msg.ChatID)
	}
	q.mu.Unlock()

	if batch != nil {
		q.logger.Info("Batch ready",
			"chat_id", msg.ChatID, "size", len(batch), "reason", decision.Reason)
		q.dispatch(msg.ChatID, batch)
		return
	}

	q.logger.Debug("Message queued, waiting for more",
		"chat_id", msg.ChatID, "size", size)
}

// semanticSimilarity compares the incoming message against the first queued
// one via embeddings. Only attempted when the queue is about to hold enough
// messages for the topic-change rule and both texts are long enough; any
// failure degrades to nil so Decide uses the keyword fallback.
func (q *Queue) semanticSimilarity(ctx context.Context, msg models.Message) *float64 {
	if q.embedder == nil || len([]rune(msg.Text)) < embeddingMinTextLen {
		return nil
	}

	q.mu.RLock()
	cq, ok := q.queues[msg.ChatID]
	var firstText string
	if ok && len(cq.messages) >= topicChangeMinCount-1 {
		firstText = cq.messages[0].Text
	}
	q.mu.RUnlock()

	if len([]rune(firstText)) < embeddingMinTextLen {
		return nil
	}

	firstEmb, err := q.embedder.Embed(ctx, firstText)
	if err != nil {
		q.logger.Warn("Embedding failed, using keyword fallback", "error", err)
		return nil
	}
	lastEmb, err := q.embedder.Embed(ctx, msg.Text)
	if err != nil {
		q.logger.Warn("Embedding failed, using keyword fallback", "error", err)
		return nil
	}

	sim := cosineSimilarity(firstEmb, lastEmb)
	return &sim
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// Start launches the ticker goroutine that re-checks every chat queue.
func (q *Queue) Start(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ticker := time.NewTicker(q.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				q.tick()
			case <-q.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	q.logger.Info("Message queue started", "tick_interval", q.interval)
}

// tick re-evaluates every queue: silence and safety rules depend on the
// passage of time, not on new messages.
func (q *Queue) tick() {
	q.mu.RLock()
	chatIDs := make([]string, 0, len(q.queues))
	for id := range q.queues {
		chatIDs = append(chatIDs, id)
	}
	q.mu.RUnlock()

	for _, chatID := range chatIDs {
		q.mu.Lock()
		cq, ok := q.queues[chatID]
		if !ok {
			// Drained by a concurrent enqueue between snapshot and here.
			q.mu.Unlock()
			continue
		}
		decision := Decide(cq.messages, q.now(), nil)
		var batch []models.Message
		if decision.ProcessNow {
			batch = cq.messages
			delete(q.queues, chatID)
		}
		q.mu.Unlock()

		if batch != nil {
			q.logger.Info("Batch ready on tick",
				"chat_id", chatID, "size", len(batch), "reason", decision.Reason)
			q.dispatch(chatID, batch)
		}
	}
}

func (q *Queue) dispatch(chatID string, batch []models.Message) {
	q.inflight.Add(1)
	go func() {
		defer q.inflight.Done()
		q.callback(chatID, batch)
	}()
}

// Stop halts the ticker and waits for in-flight batch callbacks up to the
// given deadline. Queued-but-undecided messages stay unprocessed.
func (q *Queue) Stop(timeout time.Duration) {
	q.stopOnce.Do(func() {
		close(q.stopCh)
	})
	q.wg.Wait()

	done := make(chan struct{})
	go func() {
		q.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.logger.Info("Message queue stopped, all batches complete")
	case <-time.After(timeout):
		q.logger.Warn("Message queue stopped with batches still in flight", "timeout", timeout)
	}
}

// Depth reports the number of chats with queued messages, for health checks.
func (q *Queue) Depth() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.queues)
}
