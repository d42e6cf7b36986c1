package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pdfchat-ai/internal/handlers"
	"pdfchat-ai/internal/rag"
	"pdfchat-ai/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	DB             *sql.DB
	Chats          storage.ChatStore
	Documents      storage.DocumentStore
	Messages       storage.MessageStore
	Engine         rag.Engine
	UploadDir      string
	MaxUploadBytes int64
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(CORS)

	chatsHandler := handlers.NewChatsHandler(deps.Chats, deps.Documents, deps.Messages)
	messagesHandler := handlers.NewMessagesHandler(deps.Engine, deps.Messages)
	documentsHandler := handlers.NewDocumentsHandler(deps.Documents, deps.Chats, deps.UploadDir, deps.MaxUploadBytes)
	healthHandler := handlers.NewHealthHandler(deps.DB)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)

		r.Route("/chats", func(r chi.Router) {
			r.Get("/", chatsHandler.List)
			r.Post("/", chatsHandler.Create)
			r.Get("/{chatID}", chatsHandler.Get)
			r.Put("/{chatID}", chatsHandler.Update)
			r.Delete("/{chatID}", chatsHandler.Delete)
			r.Get("/{chatID}/messages", messagesHandler.List)
			r.Post("/{chatID}/conversation", messagesHandler.Converse)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", documentsHandler.List)
			r.Post("/", documentsHandler.Upload)
			r.Get("/{documentID}", documentsHandler.Get)
			r.Delete("/{documentID}", documentsHandler.Delete)
			r.Get("/{documentID}/content", documentsHandler.Content)
		})
	})

	return r
}
