// taskbridge server - ingests chat webhooks, batches per-conversation
// messages, classifies them, and materializes tasks downstream.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/nordja/taskbridge/pkg/ai"
	"github.com/nordja/taskbridge/pkg/api"
	"github.com/nordja/taskbridge/pkg/batching"
	"github.com/nordja/taskbridge/pkg/cache"
	"github.com/nordja/taskbridge/pkg/chatguru"
	"github.com/nordja/taskbridge/pkg/clickup"
	"github.com/nordja/taskbridge/pkg/config"
	"github.com/nordja/taskbridge/pkg/database"
	"github.com/nordja/taskbridge/pkg/media"
	"github.com/nordja/taskbridge/pkg/pipeline"
	"github.com/nordja/taskbridge/pkg/secrets"
	"github.com/nordja/taskbridge/pkg/structure"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	}

	ctx := context.Background()

	cfg, err := config.Initialize(*configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}
	gin.SetMode(cfg.Server.GinMode)

	// Resolve the downstream token through the secret store when configured.
	if cfg.ClickUp.TokenSecret != "" {
		store := buildSecretStore(ctx, *configDir)
		token, err := store.Get(ctx, cfg.ClickUp.TokenSecret)
		if err != nil {
			log.Fatalf("Failed to read ClickUp token from secret store: %v", err)
		}
		cfg.ClickUp.Token = token
	}

	dbClient, err := database.NewClient(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("Error closing database client", "error", err)
		}
	}()
	slog.Info("Connected to PostgreSQL, schema up to date")

	mappings := database.NewMappingRepository(dbClient)

	clickupClient := clickup.NewClient(cfg.ClickUp.BaseURL, cfg.ClickUp.Token)
	if err := clickupClient.VerifyAuth(ctx, cfg.ClickUp.TeamID); err != nil {
		log.Fatalf("ClickUp token verification failed: %v", err)
	}

	structCache := cache.New(cache.DefaultTTL)
	resolver := structure.NewResolver(mappings, clickupClient, structCache)

	classifier := buildClassifier(ctx, cfg)
	mediaProcessor := media.NewProcessor(cfg.AI)
	materializer := clickup.NewMaterializer(clickupClient, cfg.Prompt)
	chatService := chatguru.NewService(cfg.ChatGuru.Endpoint, cfg.ChatGuru.Token, cfg.ChatGuru.PhoneID)

	orchestrator := pipeline.New(mediaProcessor, classifier, resolver, materializer, chatService, cfg.Prompt)

	var embedder batching.Embedder
	if cfg.AI.EmbeddingsEnabled {
		genaiEmbedder, err := ai.NewGenAIEmbedder(ctx, cfg.AI)
		if err != nil {
			slog.Warn("Embeddings unavailable, topic detection falls back to keywords", "error", err)
		} else {
			embedder = genaiEmbedder
		}
	}

	queue := batching.NewQueue(cfg.Queue.TickInterval, embedder, orchestrator.OnBatchReady)
	queue.Start(ctx)

	server := api.NewServer(cfg, dbClient, queue)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Graceful shutdown: stop accepting requests, then wait for in-flight
	// batches within the configured deadline.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
	queue.Stop(cfg.Queue.ShutdownTimeout)
	slog.Info("Shutdown complete")
}

// buildClassifier assembles the provider chain: Gemini when the feature flag
// enables it, OpenAI always, keyword fallback last.
func buildClassifier(ctx context.Context, cfg *config.Config) *ai.Classifier {
	var providers []ai.Provider

	if cfg.AI.GeminiEnabled {
		gemini, err := ai.NewGeminiProvider(ctx, cfg.AI, cfg.Prompt)
		if err != nil {
			slog.Warn("Gemini provider unavailable, continuing without it", "error", err)
		} else {
			providers = append(providers, gemini)
		}
	}

	providers = append(providers,
		ai.NewOpenAIProvider(cfg.AI, cfg.Prompt),
		ai.NewKeywordProvider(),
	)

	return ai.NewClassifier(cfg.Prompt, providers...)
}

// buildSecretStore picks the Secret Manager store when a GCP project is set,
// the local file store otherwise.
func buildSecretStore(ctx context.Context, configDir string) secrets.Store {
	if project := os.Getenv("GCP_PROJECT"); project != "" {
		store, err := secrets.NewGCPStore(ctx, project)
		if err == nil {
			return store
		}
		slog.Warn("Secret Manager unavailable, falling back to file store", "error", err)
	}
	return secrets.NewFileStore(filepath.Join(configDir, "secrets.json"))
}
