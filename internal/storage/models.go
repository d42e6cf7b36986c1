package storage

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRecord represents a conversation session in the database.
type ChatRecord struct {
	ID         int64
	Title      string
	Preview    string
	CreatedAt  time.Time
	LastActive time.Time
}

// DocumentRecord represents an uploaded PDF in the database.
type DocumentRecord struct {
	ID         int64
	Name       string
	Size       int64 // Size in bytes
	Pages      int
	FilePath   string // Path to the stored file
	UploadDate time.Time
}

// PageRecord represents one page of extracted document text.
type PageRecord struct {
	ID         int64
	DocumentID int64
	PageNumber int
	Content    string
}

// MessageRecord represents a chat message in the database.
type MessageRecord struct {
	ID        int64
	ChatID    int64
	Role      string // RoleUser or RoleAssistant
	Content   string
	Timestamp time.Time
}

// SourceRecord represents a citation owned by an assistant message.
// A source never outlives its message: rows cascade-delete with it.
type SourceRecord struct {
	ID         int64
	MessageID  int64
	DocumentID int64
	Page       int
	Highlight  string
	Content    string
	KeyPhrases []string // Stored as a JSON array
	LineStart  *int
	LineEnd    *int
}
