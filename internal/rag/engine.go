// Package rag orchestrates a conversation turn: it rebuilds the per-chat
// vector index, retrieves grounding chunks, generates an answer, and
// persists the assistant reply with its citations.
package rag

import (
	"context"
	"fmt"

	"pdfchat-ai/internal/citation"
	"pdfchat-ai/internal/contextutil"
	"pdfchat-ai/internal/llm"
	"pdfchat-ai/internal/segmenter"
	"pdfchat-ai/internal/storage"
	"pdfchat-ai/internal/vectorindex"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_generator.go -package=mocks pdfchat-ai/internal/rag Generator

// Generator produces an answer from a model conversation.
type Generator interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// apologyMessage is persisted as the assistant reply whenever generation
// fails after the user's message has already been recorded.
const apologyMessage = "I'm sorry, I encountered an error processing your request."

const (
	// historyLimit caps how many prior turns go into the model context.
	historyLimit = 10
	// answerTemperature keeps answers grounded rather than creative.
	answerTemperature = 0.4
)

// Result is what a conversation turn returns to the caller.
type Result struct {
	ID      int64             `json:"id"`
	Content string            `json:"content"`
	Role    string            `json:"role"`
	Sources []citation.Source `json:"sources"`
}

// Engine processes conversation turns against a chat's documents.
type Engine interface {
	// ProcessMessage runs one full turn for the given chat. Generation
	// failures are absorbed into an apology reply; only chat lookup and
	// persistence of the user's own message can fail outright.
	ProcessMessage(ctx context.Context, chatID int64, userText string) (Result, error)
}

type conversationEngine struct {
	chats     storage.ChatStore
	documents storage.DocumentStore
	messages  storage.MessageStore
	embedder  vectorindex.Embedder
	generator Generator
	segmenter *segmenter.Segmenter
}

// NewEngine creates a conversation engine.
func NewEngine(
	chats storage.ChatStore,
	documents storage.DocumentStore,
	messages storage.MessageStore,
	embedder vectorindex.Embedder,
	generator Generator,
) Engine {
	return &conversationEngine{
		chats:     chats,
		documents: documents,
		messages:  messages,
		embedder:  embedder,
		generator: generator,
		segmenter: segmenter.New(segmenter.DefaultChunkSize, segmenter.DefaultOverlap),
	}
}

// ProcessMessage runs the per-turn pipeline: index, persist user message,
// load history, retrieve, generate, persist reply with sources.
func (e *conversationEngine) ProcessMessage(ctx context.Context, chatID int64, userText string) (Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if _, err := e.chats.GetByID(ctx, chatID); err != nil {
		return Result{}, fmt.Errorf("failed to load chat: %w", err)
	}

	logger.InfoContext(ctx, "processing message", "chat_id", chatID, "message_length", len(userText))

	// The index is rebuilt from canonical page text every turn so newly
	// attached documents are picked up immediately. A build failure is a
	// generation failure: the user message still gets persisted below.
	index, indexErr := e.buildIndex(ctx, chatID)
	if indexErr != nil {
		logger.ErrorContext(ctx, "failed to build vector index", "chat_id", chatID, "error", indexErr)
	}

	// The user's message lands before anything that can fail later, so
	// the conversation log never loses the question.
	userMsg, err := e.messages.Create(ctx, chatID, storage.RoleUser, userText)
	if err != nil {
		return Result{}, fmt.Errorf("failed to persist user message: %w", err)
	}
	e.touchChat(ctx, chatID, userText)

	if indexErr != nil {
		return e.apologize(ctx, chatID)
	}

	history, err := e.loadHistory(ctx, chatID, userMsg.ID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load history", "chat_id", chatID, "error", err)
		return e.apologize(ctx, chatID)
	}

	chunks, err := e.retrieve(ctx, index, userText)
	if err != nil {
		logger.ErrorContext(ctx, "failed to retrieve chunks", "chat_id", chatID, "error", err)
		return e.apologize(ctx, chatID)
	}
	logger.InfoContext(ctx, "chunks retrieved", "chat_id", chatID, "count", len(chunks))

	answer, err := e.generator.ChatWithMessages(ctx, buildMessages(history, userText, chunks), llm.ChatParams{
		Temperature: answerTemperature,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to generate answer", "chat_id", chatID, "error", err)
		return e.apologize(ctx, chatID)
	}

	sources := citation.BuildSources(answer, chunks)

	records := make([]storage.SourceRecord, 0, len(sources))
	for _, src := range sources {
		records = append(records, storage.SourceRecord{
			DocumentID: src.DocumentID,
			Page:       src.Page,
			Highlight:  src.Highlight,
			Content:    src.Content,
			KeyPhrases: src.KeyPhrases,
		})
	}

	assistantMsg, err := e.messages.CreateWithSources(ctx, chatID, storage.RoleAssistant, answer, records)
	if err != nil {
		logger.ErrorContext(ctx, "failed to persist assistant message", "chat_id", chatID, "error", err)
		return e.apologize(ctx, chatID)
	}

	logger.InfoContext(ctx, "message processed",
		"chat_id", chatID,
		"answer_length", len(answer),
		"sources", len(sources),
	)

	return Result{
		ID:      assistantMsg.ID,
		Content: answer,
		Role:    storage.RoleAssistant,
		Sources: sources,
	}, nil
}

// buildIndex segments every page of the chat's documents and embeds the
// chunks into a fresh in-memory index. A chat with no documents gets an
// empty index and retrieval will yield nothing.
func (e *conversationEngine) buildIndex(ctx context.Context, chatID int64) (*vectorindex.Index, error) {
	docs, err := e.documents.ListByChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	var chunks []segmenter.Chunk
	for _, doc := range docs {
		records, err := e.documents.ListPagesByDocument(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list pages for document %d: %w", doc.ID, err)
		}
		pages := make([]segmenter.Page, 0, len(records))
		for _, rec := range records {
			pages = append(pages, segmenter.Page{Number: rec.PageNumber, Text: rec.Content})
		}
		chunks = append(chunks, e.segmenter.SegmentPages(doc.ID, doc.Name, pages)...)
	}

	return vectorindex.Build(ctx, e.embedder, chunks)
}

// loadHistory returns the prior turns for the model context, most recent
// historyLimit entries, excluding the just-persisted user message.
func (e *conversationEngine) loadHistory(ctx context.Context, chatID, currentMsgID int64) ([]storage.MessageRecord, error) {
	all, err := e.messages.ListByChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	history := make([]storage.MessageRecord, 0, len(all))
	for _, msg := range all {
		if msg.ID == currentMsgID {
			continue
		}
		history = append(history, msg)
	}
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	return history, nil
}

// retrieve embeds the question and queries the index. An empty index
// short-circuits: no embedding call, no chunks.
func (e *conversationEngine) retrieve(ctx context.Context, index *vectorindex.Index, question string) ([]segmenter.Chunk, error) {
	if index.Len() == 0 {
		return nil, nil
	}

	vectors, err := e.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned for question")
	}

	return Retrieve(index, vectors[0]), nil
}

// previewLimit caps the chat list preview taken from the user's message.
const previewLimit = 100

// touchChat bumps the chat's last_active and sets its preview from the
// user's message. Both updates are best-effort: a failure here must not
// fail the turn.
func (e *conversationEngine) touchChat(ctx context.Context, chatID int64, userText string) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := e.chats.TouchLastActive(ctx, chatID); err != nil {
		logger.WarnContext(ctx, "failed to update chat activity", "chat_id", chatID, "error", err)
	}

	preview := userText
	if runes := []rune(preview); len(runes) > previewLimit {
		preview = string(runes[:previewLimit])
	}
	if err := e.chats.UpdatePreview(ctx, chatID, preview); err != nil {
		logger.WarnContext(ctx, "failed to update chat preview", "chat_id", chatID, "error", err)
	}
}

// apologize persists the fixed fallback reply with no sources. The turn
// still completes normally from the caller's point of view.
func (e *conversationEngine) apologize(ctx context.Context, chatID int64) (Result, error) {
	msg, err := e.messages.Create(ctx, chatID, storage.RoleAssistant, apologyMessage)
	if err != nil {
		return Result{}, fmt.Errorf("failed to persist fallback message: %w", err)
	}
	return Result{
		ID:      msg.ID,
		Content: apologyMessage,
		Role:    storage.RoleAssistant,
		Sources: []citation.Source{},
	}, nil
}
