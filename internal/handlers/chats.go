package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"pdfchat-ai/internal/contextutil"
	"pdfchat-ai/internal/storage"
)

// ChatsHandler handles HTTP requests for chat management.
type ChatsHandler struct {
	chats     storage.ChatStore
	documents storage.DocumentStore
	messages  storage.MessageStore
}

// NewChatsHandler creates a new ChatsHandler.
func NewChatsHandler(chats storage.ChatStore, documents storage.DocumentStore, messages storage.MessageStore) *ChatsHandler {
	return &ChatsHandler{chats: chats, documents: documents, messages: messages}
}

// CreateChatRequest is the payload for creating a chat.
type CreateChatRequest struct {
	Title string `json:"title"`
}

// ChatResponse represents a chat in HTTP responses.
type ChatResponse struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Preview    string    `json:"preview"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

// ChatDetailResponse is a chat with its messages and attached documents.
type ChatDetailResponse struct {
	ChatResponse
	Messages  []MessageResponse  `json:"messages"`
	Documents []DocumentResponse `json:"documents"`
}

// Create handles POST /api/chats.
func (h *ChatsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" {
		req.Title = "New Chat"
	}

	chat, err := h.chats.Create(ctx, req.Title)
	if err != nil {
		logger.ErrorContext(ctx, "failed to create chat", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create chat")
		return
	}

	writeJSON(w, http.StatusCreated, toChatResponse(chat))
}

// List handles GET /api/chats.
func (h *ChatsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	chats, err := h.chats.List(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list chats", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list chats")
		return
	}

	resp := make([]ChatResponse, 0, len(chats))
	for i := range chats {
		resp = append(resp, toChatResponse(&chats[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/chats/{chatID}, returning the chat together with
// its messages (sources included) and documents.
func (h *ChatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}

	chat, err := h.chats.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Chat not found")
			return
		}
		logger.ErrorContext(ctx, "failed to get chat", "chat_id", chatID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get chat")
		return
	}

	messages, err := listMessagesWithSources(ctx, h.messages, chatID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list messages", "chat_id", chatID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list messages")
		return
	}

	docs, err := h.documents.ListByChat(ctx, chatID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list documents", "chat_id", chatID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}
	docResponses := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		docResponses = append(docResponses, toDocumentResponse(&docs[i]))
	}

	writeJSON(w, http.StatusOK, ChatDetailResponse{
		ChatResponse: toChatResponse(chat),
		Messages:     messages,
		Documents:    docResponses,
	})
}

// UpdateChatRequest is the payload for renaming a chat.
type UpdateChatRequest struct {
	Title string `json:"title"`
}

// Update handles PUT /api/chats/{chatID}, renaming the chat.
func (h *ChatsHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}

	var req UpdateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	if err := h.chats.UpdateTitle(ctx, chatID, req.Title); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Chat not found")
			return
		}
		logger.ErrorContext(ctx, "failed to update chat", "chat_id", chatID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update chat")
		return
	}

	chat, err := h.chats.GetByID(ctx, chatID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to get chat", "chat_id", chatID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get chat")
		return
	}
	writeJSON(w, http.StatusOK, toChatResponse(chat))
}

// Delete handles DELETE /api/chats/{chatID}. The chat's messages, their
// sources, and its document associations go with it.
func (h *ChatsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}

	if err := h.chats.Delete(ctx, chatID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Chat not found")
			return
		}
		logger.ErrorContext(ctx, "failed to delete chat", "chat_id", chatID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete chat")
		return
	}

	logger.InfoContext(ctx, "chat deleted", "chat_id", chatID)
	w.WriteHeader(http.StatusNoContent)
}

func toChatResponse(chat *storage.ChatRecord) ChatResponse {
	return ChatResponse{
		ID:         chat.ID,
		Title:      chat.Title,
		Preview:    chat.Preview,
		CreatedAt:  chat.CreatedAt,
		LastActive: chat.LastActive,
	}
}
