package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_store.go -package=mocks pdfchat-ai/internal/storage ChatStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// ChatStore defines the interface for chat storage operations.
type ChatStore interface {
	// Create inserts a new chat and returns it with its assigned ID.
	Create(ctx context.Context, title string) (*ChatRecord, error)
	// GetByID gets a chat by ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id int64) (*ChatRecord, error)
	// List returns all chats ordered by last activity, most recent first.
	List(ctx context.Context) ([]ChatRecord, error)
	// TouchLastActive bumps the chat's last_active timestamp.
	TouchLastActive(ctx context.Context, id int64) error
	// UpdatePreview sets the chat's preview text.
	UpdatePreview(ctx context.Context, id int64, preview string) error
	// UpdateTitle renames a chat. Returns ErrNotFound if not found.
	UpdateTitle(ctx context.Context, id int64, title string) error
	// Delete removes a chat; its messages, their sources, and its
	// document associations cascade. Returns ErrNotFound if not found.
	Delete(ctx context.Context, id int64) error
}

// ChatRepo provides methods for chat operations.
// It implements the ChatStore interface.
type ChatRepo struct {
	db *sql.DB
}

// NewChatRepo creates a new ChatRepo.
func NewChatRepo(db *sql.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// Create inserts a new chat and returns it with its assigned ID.
func (r *ChatRepo) Create(ctx context.Context, title string) (*ChatRecord, error) {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO chats (title) VALUES (?)", title,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert chat: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get chat id: %w", err)
	}

	return r.GetByID(ctx, id)
}

// GetByID gets a chat by ID. Returns ErrNotFound if not found.
func (r *ChatRepo) GetByID(ctx context.Context, id int64) (*ChatRecord, error) {
	var chat ChatRecord
	var preview sql.NullString

	err := r.db.QueryRowContext(ctx,
		"SELECT id, title, preview, created_at, last_active FROM chats WHERE id = ?", id,
	).Scan(&chat.ID, &chat.Title, &preview, &chat.CreatedAt, &chat.LastActive)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chat: %w", err)
	}

	chat.Preview = preview.String
	return &chat, nil
}

// List returns all chats ordered by last activity, most recent first.
func (r *ChatRepo) List(ctx context.Context) ([]ChatRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, title, preview, created_at, last_active FROM chats ORDER BY last_active DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var chats []ChatRecord
	for rows.Next() {
		var chat ChatRecord
		var preview sql.NullString
		if err := rows.Scan(&chat.ID, &chat.Title, &preview, &chat.CreatedAt, &chat.LastActive); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chat.Preview = preview.String
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chats: %w", err)
	}

	return chats, nil
}

// TouchLastActive bumps the chat's last_active timestamp.
func (r *ChatRepo) TouchLastActive(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE chats SET last_active = CURRENT_TIMESTAMP WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("failed to touch chat: %w", err)
	}
	return nil
}

// UpdatePreview sets the chat's preview text.
func (r *ChatRepo) UpdatePreview(ctx context.Context, id int64, preview string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE chats SET preview = ? WHERE id = ?", preview, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update chat preview: %w", err)
	}
	return nil
}

// UpdateTitle renames a chat. Returns ErrNotFound if not found.
func (r *ChatRepo) UpdateTitle(ctx context.Context, id int64, title string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE chats SET title = ? WHERE id = ?", title, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update chat title: %w", err)
	}
	return requireRow(result)
}

// Delete removes a chat. Messages, sources, and document associations
// go with it via the schema's cascades.
func (r *ChatRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM chats WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	return requireRow(result)
}

// requireRow maps a zero-row write to ErrNotFound.
func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
