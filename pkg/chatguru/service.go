package chatguru

import (
	"context"
	"log/slog"
)

// Service delivers annotations and confirmations back to the chat.
// Nil-safe: all methods are no-ops when the service is nil, so the pipeline
// can run without a configured chat platform (tests, dry runs).
// Fail-open: delivery errors are logged, never returned.
type Service struct {
	client  *Client
	phoneID string
	logger  *slog.Logger
}

// NewService creates the annotation service. Returns nil when the endpoint
// is empty.
func NewService(endpoint, token, phoneID string) *Service {
	if endpoint == "" {
		return nil
	}
	return &Service{
		client:  NewClient(endpoint, token),
		phoneID: phoneID,
		logger:  slog.Default().With("component", "chatguru-service"),
	}
}

// NewServiceWithClient creates a Service backed by a pre-built client.
// Useful for testing with a mock API server.
func NewServiceWithClient(client *Client, phoneID string) *Service {
	return &Service{
		client:  client,
		phoneID: phoneID,
		logger:  slog.Default().With("component", "chatguru-service"),
	}
}

// Annotate posts an annotation to the chat.
func (s *Service) Annotate(ctx context.Context, chatID, phone, text string) {
	if s == nil {
		return
	}
	if err := s.client.AddAnnotation(ctx, chatID, phone, text); err != nil {
		s.logger.Error("Failed to deliver annotation",
			"chat_id", chatID, "error", err)
		return
	}
	s.logger.Info("Annotation delivered", "chat_id", chatID)
}

// Confirm sends the task-created confirmation into the conversation.
func (s *Service) Confirm(ctx context.Context, phone, text string) {
	if s == nil {
		return
	}
	phoneID := s.phoneID
	if err := s.client.SendMessage(ctx, phone, phoneID, text); err != nil {
		s.logger.Error("Failed to deliver confirmation",
			"phone", phone, "error", err)
		return
	}
	s.logger.Info("Confirmation delivered", "phone", phone)
}
