package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks pdfchat-ai/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"fmt"
)

// DocumentStore defines the interface for document storage operations.
type DocumentStore interface {
	// Create inserts a new document and returns it with its assigned ID.
	Create(ctx context.Context, doc *DocumentRecord) (*DocumentRecord, error)
	// GetByID gets a document by ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id int64) (*DocumentRecord, error)
	// ListByChat returns the documents attached to a chat, oldest upload first.
	ListByChat(ctx context.Context, chatID int64) ([]DocumentRecord, error)
	// AttachToChat links a document to a chat. Attaching twice is a no-op.
	AttachToChat(ctx context.Context, documentID, chatID int64) error
	// InsertPage stores one page of extracted text for a document.
	InsertPage(ctx context.Context, page *PageRecord) error
	// ListPagesByDocument returns a document's pages ordered by page number.
	ListPagesByDocument(ctx context.Context, documentID int64) ([]PageRecord, error)
	// Delete removes a document; its page content, chat associations,
	// and sources cascade. Returns ErrNotFound if not found.
	Delete(ctx context.Context, id int64) error
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Create inserts a new document and returns it with its assigned ID.
func (r *DocumentRepo) Create(ctx context.Context, doc *DocumentRecord) (*DocumentRecord, error) {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO documents (name, size, pages, file_path) VALUES (?, ?, ?, ?)",
		doc.Name, doc.Size, doc.Pages, doc.FilePath,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get document id: %w", err)
	}

	return r.GetByID(ctx, id)
}

// GetByID gets a document by ID. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByID(ctx context.Context, id int64) (*DocumentRecord, error) {
	var doc DocumentRecord

	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, size, pages, file_path, upload_date FROM documents WHERE id = ?", id,
	).Scan(&doc.ID, &doc.Name, &doc.Size, &doc.Pages, &doc.FilePath, &doc.UploadDate)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	return &doc, nil
}

// ListByChat returns the documents attached to a chat, oldest upload first.
func (r *DocumentRepo) ListByChat(ctx context.Context, chatID int64) ([]DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT d.id, d.name, d.size, d.pages, d.file_path, d.upload_date
		 FROM documents d
		 JOIN document_chat dc ON dc.document_id = d.id
		 WHERE dc.chat_id = ?
		 ORDER BY d.upload_date, d.id`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []DocumentRecord
	for rows.Next() {
		var doc DocumentRecord
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.Size, &doc.Pages, &doc.FilePath, &doc.UploadDate); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

// AttachToChat links a document to a chat. Attaching twice is a no-op.
func (r *DocumentRepo) AttachToChat(ctx context.Context, documentID, chatID int64) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO document_chat (document_id, chat_id) VALUES (?, ?)",
		documentID, chatID,
	)
	if err != nil {
		return fmt.Errorf("failed to attach document to chat: %w", err)
	}
	return nil
}

// InsertPage stores one page of extracted text for a document.
func (r *DocumentRepo) InsertPage(ctx context.Context, page *PageRecord) error {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO document_content (document_id, page_number, content) VALUES (?, ?, ?)",
		page.DocumentID, page.PageNumber, page.Content,
	)
	if err != nil {
		return fmt.Errorf("failed to insert page: %w", err)
	}

	page.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get page id: %w", err)
	}
	return nil
}

// Delete removes a document. Page content, chat associations, and
// sources go with it via the schema's cascades.
func (r *DocumentRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM documents WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return requireRow(result)
}

// ListPagesByDocument returns a document's pages ordered by page number.
func (r *DocumentRepo) ListPagesByDocument(ctx context.Context, documentID int64) ([]PageRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, document_id, page_number, content FROM document_content WHERE document_id = ? ORDER BY page_number",
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var pages []PageRecord
	for rows.Next() {
		var page PageRecord
		var content sql.NullString
		if err := rows.Scan(&page.ID, &page.DocumentID, &page.PageNumber, &content); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		page.Content = content.String
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pages: %w", err)
	}

	return pages, nil
}
