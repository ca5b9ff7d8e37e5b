package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nordja/taskbridge/pkg/models"
)

// maxWebhookBody bounds the accepted payload size.
const maxWebhookBody = 1 << 20

// webhookHandler handles POST /webhooks/chatguru. The payload shape is
// auto-detected; malformed payloads are the one hard reject of the pipeline.
// Accepted messages are enqueued and the request returns immediately — batch
// processing happens asynchronously.
func (s *Server) webhookHandler(c *gin.Context) {
	requestID := uuid.NewString()

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body", "request_id": requestID})
		return
	}

	webhook, err := models.ParseWebhook(body)
	if err != nil {
		if errors.Is(err, models.ErrMalformed) {
			s.logger.Warn("Rejected malformed webhook", "request_id", requestID, "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "payload matches no known shape", "request_id": requestID})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "request_id": requestID})
		return
	}

	msg := webhook.Message(time.Now())
	if msg.ChatID == "" {
		s.logger.Warn("Rejected webhook without chat identity", "request_id", requestID, "kind", webhook.Kind)
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing chat identity", "request_id": requestID})
		return
	}

	s.queue.Enqueue(c.Request.Context(), msg)

	s.logger.Info("Webhook accepted",
		"request_id", requestID,
		"kind", webhook.Kind,
		"chat_id", msg.ChatID,
		"has_media", msg.HasMedia())

	c.JSON(http.StatusAccepted, gin.H{
		"status":     "queued",
		"request_id": requestID,
	})
}
