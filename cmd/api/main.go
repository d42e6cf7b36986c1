package main

import (
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"strings"

	"pdfchat-ai/internal/config"
	"pdfchat-ai/internal/http"
	"pdfchat-ai/internal/llm"
	"pdfchat-ai/internal/rag"
	"pdfchat-ai/internal/storage"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel, "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Create repository instances
	chatRepo := storage.NewChatRepo(db)
	documentRepo := storage.NewDocumentRepo(db)
	messageRepo := storage.NewMessageRepo(db)

	// Create external model clients
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingVectorSize)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	// Create conversation engine
	engine := rag.NewEngine(chatRepo, documentRepo, messageRepo, embedder, llmClient)
	slog.Info("Conversation engine initialized",
		"llm_model", cfg.LLMModelName,
		"embedding_model", cfg.EmbeddingModelName,
		"vector_size", cfg.EmbeddingVectorSize,
	)

	// Create router with dependencies
	deps := &http.Deps{
		DB:             db,
		Chats:          chatRepo,
		Documents:      documentRepo,
		Messages:       messageRepo,
		Engine:         engine,
		UploadDir:      cfg.UploadDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}

// parseLogLevel maps the configured level string to a slog level,
// defaulting to info for anything unrecognized.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
