package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pdfchat-ai/internal/contextutil"
	"pdfchat-ai/internal/pdf"
	"pdfchat-ai/internal/storage"
)

// DocumentsHandler handles HTTP requests for PDF uploads and retrieval.
type DocumentsHandler struct {
	documents      storage.DocumentStore
	chats          storage.ChatStore
	uploadDir      string
	maxUploadBytes int64
}

// NewDocumentsHandler creates a new DocumentsHandler.
func NewDocumentsHandler(documents storage.DocumentStore, chats storage.ChatStore, uploadDir string, maxUploadBytes int64) *DocumentsHandler {
	return &DocumentsHandler{
		documents:      documents,
		chats:          chats,
		uploadDir:      uploadDir,
		maxUploadBytes: maxUploadBytes,
	}
}

// DocumentResponse represents a document in HTTP responses.
type DocumentResponse struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Pages      int       `json:"pages"`
	UploadDate time.Time `json:"upload_date"`
}

// Upload handles POST /api/documents: it stores the PDF on disk,
// extracts per-page text into the database, and attaches the document to
// the given chat.
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File too large. Maximum size is %d MB", h.maxUploadBytes/1024/1024))
			return
		}
		logger.WarnContext(ctx, "invalid multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	chatID, err := strconv.ParseInt(r.FormValue("chat_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "chat_id is required")
		return
	}
	if _, err := h.chats.GetByID(ctx, chatID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Chat not found")
			return
		}
		logger.ErrorContext(ctx, "failed to get chat", "chat_id", chatID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get chat")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		writeError(w, http.StatusUnsupportedMediaType, "Only PDF files are supported")
		return
	}

	path := filepath.Join(h.uploadDir, uuid.NewString()+".pdf")
	size, err := h.saveFile(file, path)
	if err != nil {
		logger.ErrorContext(ctx, "failed to save upload", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to store file")
		return
	}

	pages, err := pdf.ExtractPages(path)
	if err != nil {
		logger.WarnContext(ctx, "failed to extract pdf text", "file", header.Filename, "error", err)
		_ = os.Remove(path)
		writeError(w, http.StatusUnprocessableEntity, "Could not read PDF file")
		return
	}

	doc, err := h.documents.Create(ctx, &storage.DocumentRecord{
		Name:     header.Filename,
		Size:     size,
		Pages:    len(pages),
		FilePath: path,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to create document", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create document")
		return
	}

	for _, page := range pages {
		if err := h.documents.InsertPage(ctx, &storage.PageRecord{
			DocumentID: doc.ID,
			PageNumber: page.Number,
			Content:    page.Text,
		}); err != nil {
			logger.ErrorContext(ctx, "failed to store page text", "document_id", doc.ID, "page", page.Number, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to store document text")
			return
		}
	}

	if err := h.documents.AttachToChat(ctx, doc.ID, chatID); err != nil {
		logger.ErrorContext(ctx, "failed to attach document", "document_id", doc.ID, "chat_id", chatID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to attach document")
		return
	}

	logger.InfoContext(ctx, "document uploaded",
		"document_id", doc.ID,
		"chat_id", chatID,
		"name", header.Filename,
		"pages", len(pages),
		"size", size,
	)
	writeJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

// List handles GET /api/documents?chat_id=N, returning the documents
// attached to the given chat.
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	chatID, err := strconv.ParseInt(r.URL.Query().Get("chat_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "chat_id is required")
		return
	}

	docs, err := h.documents.ListByChat(ctx, chatID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list documents", "chat_id", chatID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		resp = append(resp, toDocumentResponse(&docs[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/documents/{documentID}.
func (h *DocumentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.lookupDocument(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// Content handles GET /api/documents/{documentID}/content, serving the
// stored PDF file inline for the viewer.
func (h *DocumentsHandler) Content(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.lookupDocument(w, r)
	if !ok {
		return
	}

	if doc.FilePath == "" {
		writeError(w, http.StatusNotFound, "Document file not found")
		return
	}
	if _, err := os.Stat(doc.FilePath); err != nil {
		writeError(w, http.StatusNotFound, "Document file not found")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", doc.Name))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, doc.FilePath)
}

// Delete handles DELETE /api/documents/{documentID}: the stored file is
// removed from disk and the record deleted, cascading page content, chat
// associations, and sources.
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	doc, ok := h.lookupDocument(w, r)
	if !ok {
		return
	}

	if doc.FilePath != "" {
		if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
			logger.WarnContext(ctx, "failed to remove document file", "document_id", doc.ID, "path", doc.FilePath, "error", err)
		}
	}

	if err := h.documents.Delete(ctx, doc.ID); err != nil {
		logger.ErrorContext(ctx, "failed to delete document", "document_id", doc.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete document")
		return
	}

	logger.InfoContext(ctx, "document deleted", "document_id", doc.ID, "name", doc.Name)
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentsHandler) lookupDocument(w http.ResponseWriter, r *http.Request) (*storage.DocumentRecord, bool) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	docID, err := strconv.ParseInt(chi.URLParam(r, "documentID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid document id")
		return nil, false
	}

	doc, err := h.documents.GetByID(ctx, docID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Document not found")
			return nil, false
		}
		logger.ErrorContext(ctx, "failed to get document", "document_id", docID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get document")
		return nil, false
	}
	return doc, true
}

// saveFile streams the upload to disk and returns the byte count.
func (h *DocumentsHandler) saveFile(src io.Reader, path string) (int64, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create upload dir: %w", err)
	}

	dst, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	size, err := io.Copy(dst, src)
	if err != nil {
		return 0, fmt.Errorf("failed to write file: %w", err)
	}
	return size, nil
}

func toDocumentResponse(doc *storage.DocumentRecord) DocumentResponse {
	return DocumentResponse{
		ID:         doc.ID,
		Name:       doc.Name,
		Size:       doc.Size,
		Pages:      doc.Pages,
		UploadDate: doc.UploadDate,
	}
}
