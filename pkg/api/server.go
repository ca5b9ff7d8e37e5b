// Package api provides the HTTP surface: webhook ingress and health.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nordja/taskbridge/pkg/batching"
	"github.com/nordja/taskbridge/pkg/config"
	"github.com/nordja/taskbridge/pkg/database"
	"github.com/nordja/taskbridge/pkg/version"
)

// Server is the HTTP API server.
type Server struct {
	engine   *gin.Engine
	http     *http.Server
	cfg      *config.Config
	dbClient *database.Client
	queue    *batching.Queue
	logger   *slog.Logger
}

// NewServer creates the server and registers routes.
func NewServer(cfg *config.Config, dbClient *database.Client, queue *batching.Queue) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:   engine,
		cfg:      cfg,
		dbClient: dbClient,
		queue:    queue,
		logger:   slog.Default().With("component", "api"),
	}

	engine.POST("/webhooks/chatguru", s.webhookHandler)
	engine.GET("/health", s.healthHandler)

	return s
}

// Start runs the HTTP server until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:    ":" + s.cfg.Server.Port,
		Handler: s.engine,
	}
	s.logger.Info("HTTP server listening", "port", s.cfg.Server.Port, "version", version.Full())

	err := s.http.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight HTTP requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbHealth, err := database.Health(ctx, s.dbClient.DB())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": dbHealth,
			"error":    err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"version":  version.Full(),
		"database": dbHealth,
		"queue": gin.H{
			"pending_chats": s.queue.Depth(),
		},
		"configuration": gin.H{
			"categories":     len(s.cfg.Prompt.Categories),
			"activity_types": len(s.cfg.Prompt.ActivityTypes),
			"gemini_enabled": s.cfg.AI.GeminiEnabled,
		},
	})
}
