package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_message_store.go -package=mocks pdfchat-ai/internal/storage MessageStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// MessageStore defines the interface for message and source storage.
type MessageStore interface {
	// Create persists a message without sources and returns it.
	Create(ctx context.Context, chatID int64, role, content string) (*MessageRecord, error)
	// CreateWithSources persists a message together with its sources as
	// one transaction. Either everything lands or nothing does.
	CreateWithSources(ctx context.Context, chatID int64, role, content string, sources []SourceRecord) (*MessageRecord, error)
	// ListByChat returns a chat's messages ordered by timestamp.
	ListByChat(ctx context.Context, chatID int64) ([]MessageRecord, error)
	// ListSourcesByMessage returns the sources owned by a message.
	ListSourcesByMessage(ctx context.Context, messageID int64) ([]SourceRecord, error)
}

// MessageRepo provides methods for message and source operations.
// It implements the MessageStore interface.
type MessageRepo struct {
	db *sql.DB
}

// NewMessageRepo creates a new MessageRepo.
func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create persists a message without sources and returns it.
func (r *MessageRepo) Create(ctx context.Context, chatID int64, role, content string) (*MessageRecord, error) {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO messages (chat_id, role, content) VALUES (?, ?, ?)",
		chatID, role, content,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get message id: %w", err)
	}

	return r.getByID(ctx, id)
}

// CreateWithSources persists a message together with its sources as one
// transaction.
func (r *MessageRepo) CreateWithSources(ctx context.Context, chatID int64, role, content string, sources []SourceRecord) (*MessageRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx,
		"INSERT INTO messages (chat_id, role, content) VALUES (?, ?, ?)",
		chatID, role, content,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	messageID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get message id: %w", err)
	}

	for i := range sources {
		src := &sources[i]
		phrases, err := json.Marshal(src.KeyPhrases)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal key phrases: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO sources (message_id, document_id, page, highlight, content, key_phrases, line_start, line_end)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			messageID, src.DocumentID, src.Page, src.Highlight, src.Content, string(phrases), src.LineStart, src.LineEnd,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert source: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message with sources: %w", err)
	}

	return r.getByID(ctx, messageID)
}

// ListByChat returns a chat's messages ordered by timestamp.
func (r *MessageRepo) ListByChat(ctx context.Context, chatID int64) ([]MessageRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, chat_id, role, content, timestamp FROM messages WHERE chat_id = ? ORDER BY timestamp, id",
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var messages []MessageRecord
	for rows.Next() {
		var msg MessageRecord
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

// ListSourcesByMessage returns the sources owned by a message.
func (r *MessageRepo) ListSourcesByMessage(ctx context.Context, messageID int64) ([]SourceRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, message_id, document_id, page, highlight, content, key_phrases, line_start, line_end
		 FROM sources WHERE message_id = ? ORDER BY id`,
		messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var sources []SourceRecord
	for rows.Next() {
		var src SourceRecord
		var highlight, content, phrases sql.NullString
		if err := rows.Scan(&src.ID, &src.MessageID, &src.DocumentID, &src.Page,
			&highlight, &content, &phrases, &src.LineStart, &src.LineEnd); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		src.Highlight = highlight.String
		src.Content = content.String
		if phrases.Valid && phrases.String != "" {
			if err := json.Unmarshal([]byte(phrases.String), &src.KeyPhrases); err != nil {
				return nil, fmt.Errorf("failed to unmarshal key phrases: %w", err)
			}
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sources: %w", err)
	}

	return sources, nil
}

// getByID gets a message by ID. Returns ErrNotFound if not found.
func (r *MessageRepo) getByID(ctx context.Context, id int64) (*MessageRecord, error) {
	var msg MessageRecord

	err := r.db.QueryRowContext(ctx,
		"SELECT id, chat_id, role, content, timestamp FROM messages WHERE id = ?", id,
	).Scan(&msg.ID, &msg.ChatID, &msg.Role, &msg.Content, &msg.Timestamp)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query message: %w", err)
	}

	return &msg, nil
}
