package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"pdfchat-ai/internal/contextutil"
	"pdfchat-ai/internal/rag"
	"pdfchat-ai/internal/storage"
)

// MessagesHandler handles HTTP requests for conversation turns.
type MessagesHandler struct {
	engine   rag.Engine
	messages storage.MessageStore
}

// NewMessagesHandler creates a new MessagesHandler.
func NewMessagesHandler(engine rag.Engine, messages storage.MessageStore) *MessagesHandler {
	return &MessagesHandler{engine: engine, messages: messages}
}

// ConversationRequest is the payload for sending a message to a chat.
type ConversationRequest struct {
	Message string `json:"message"`
}

// MessageResponse represents a persisted message in HTTP responses.
type MessageResponse struct {
	ID        int64            `json:"id"`
	ChatID    int64            `json:"chat_id"`
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Sources   []SourceResponse `json:"sources"`
}

// SourceResponse represents a persisted citation in HTTP responses.
type SourceResponse struct {
	DocumentID int64    `json:"document_id"`
	Page       int      `json:"page"`
	Highlight  string   `json:"highlight"`
	Content    string   `json:"content"`
	KeyPhrases []string `json:"key_phrases"`
}

// Converse handles POST /api/chats/{chatID}/conversation: it runs one
// full conversation turn and returns the assistant reply with sources.
func (h *MessagesHandler) Converse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}

	var req ConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	result, err := h.engine.ProcessMessage(ctx, chatID, req.Message)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Chat not found")
			return
		}
		logger.ErrorContext(ctx, "failed to process message", "chat_id", chatID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process message")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// List handles GET /api/chats/{chatID}/messages.
func (h *MessagesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}

	messages, err := listMessagesWithSources(ctx, h.messages, chatID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list messages", "chat_id", chatID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list messages")
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// listMessagesWithSources loads a chat's messages and joins in the
// sources of every assistant message.
func listMessagesWithSources(ctx context.Context, store storage.MessageStore, chatID int64) ([]MessageResponse, error) {
	records, err := store.ListByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	messages := make([]MessageResponse, 0, len(records))
	for _, rec := range records {
		msg := MessageResponse{
			ID:        rec.ID,
			ChatID:    rec.ChatID,
			Role:      rec.Role,
			Content:   rec.Content,
			Timestamp: rec.Timestamp,
			Sources:   []SourceResponse{},
		}

		if rec.Role == storage.RoleAssistant {
			sources, err := store.ListSourcesByMessage(ctx, rec.ID)
			if err != nil {
				return nil, err
			}
			for _, src := range sources {
				msg.Sources = append(msg.Sources, SourceResponse{
					DocumentID: src.DocumentID,
					Page:       src.Page,
					Highlight:  src.Highlight,
					Content:    src.Content,
					KeyPhrases: src.KeyPhrases,
				})
			}
		}

		messages = append(messages, msg)
	}
	return messages, nil
}
