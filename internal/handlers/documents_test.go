package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"pdfchat-ai/internal/storage"
	"pdfchat-ai/internal/storage/mocks"
)

func newDocumentsRouter(h *DocumentsHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/documents", h.List)
	r.Post("/documents", h.Upload)
	r.Get("/documents/{documentID}", h.Get)
	r.Delete("/documents/{documentID}", h.Delete)
	r.Get("/documents/{documentID}/content", h.Content)
	return r
}

// multipartUpload builds a multipart body with an optional chat_id field
// and a file part.
func multipartUpload(t *testing.T, chatID, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if chatID != "" {
		if err := writer.WriteField("chat_id", chatID); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, writer.FormDataContentType()
}

func TestDocumentsHandler_Upload_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	documents := mocks.NewMockDocumentStore(ctrl)
	chats := mocks.NewMockChatStore(ctrl)
	handler := NewDocumentsHandler(documents, chats, t.TempDir(), 1024*1024)
	router := newDocumentsRouter(handler)

	t.Run("missing chat_id", func(t *testing.T) {
		body, contentType := multipartUpload(t, "", "doc.pdf", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unknown chat", func(t *testing.T) {
		chats.EXPECT().GetByID(gomock.Any(), int64(9)).Return(nil, storage.ErrNotFound)

		body, contentType := multipartUpload(t, "9", "doc.pdf", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		chats.EXPECT().GetByID(gomock.Any(), int64(1)).Return(&storage.ChatRecord{ID: 1}, nil)

		body, contentType := multipartUpload(t, "1", "", nil)
		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("non-pdf file", func(t *testing.T) {
		chats.EXPECT().GetByID(gomock.Any(), int64(1)).Return(&storage.ChatRecord{ID: 1}, nil)

		body, contentType := multipartUpload(t, "1", "notes.txt", []byte("plain text"))
		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnsupportedMediaType {
			t.Errorf("status = %d, want 415", rec.Code)
		}
	})

	t.Run("unreadable pdf content", func(t *testing.T) {
		chats.EXPECT().GetByID(gomock.Any(), int64(1)).Return(&storage.ChatRecord{ID: 1}, nil)

		body, contentType := multipartUpload(t, "1", "bogus.pdf", []byte("not a real pdf"))
		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})
}

func TestDocumentsHandler_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	documents := mocks.NewMockDocumentStore(ctrl)
	handler := NewDocumentsHandler(documents, mocks.NewMockChatStore(ctrl), t.TempDir(), 1024)
	router := newDocumentsRouter(handler)

	t.Run("requires chat_id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/documents", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("lists chat documents", func(t *testing.T) {
		documents.EXPECT().ListByChat(gomock.Any(), int64(5)).
			Return([]storage.DocumentRecord{{ID: 3, Name: "manual.pdf", Pages: 2}}, nil)

		req := httptest.NewRequest(http.MethodGet, "/documents?chat_id=5", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
		}
		var resp []DocumentResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(resp) != 1 || resp[0].Name != "manual.pdf" {
			t.Errorf("documents = %+v", resp)
		}
	})
}

func TestDocumentsHandler_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	documents := mocks.NewMockDocumentStore(ctrl)
	uploadDir := t.TempDir()
	handler := NewDocumentsHandler(documents, mocks.NewMockChatStore(ctrl), uploadDir, 1024)
	router := newDocumentsRouter(handler)

	t.Run("removes record and file", func(t *testing.T) {
		path := filepath.Join(uploadDir, "stored.pdf")
		if err := os.WriteFile(path, []byte("%PDF-"), 0o644); err != nil {
			t.Fatal(err)
		}

		documents.EXPECT().GetByID(gomock.Any(), int64(3)).
			Return(&storage.DocumentRecord{ID: 3, Name: "manual.pdf", FilePath: path}, nil)
		documents.EXPECT().Delete(gomock.Any(), int64(3)).Return(nil)

		req := httptest.NewRequest(http.MethodDelete, "/documents/3", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204: %s", rec.Code, rec.Body.String())
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("stored file still exists after delete")
		}
	})

	t.Run("not found", func(t *testing.T) {
		documents.EXPECT().GetByID(gomock.Any(), int64(8)).Return(nil, storage.ErrNotFound)

		req := httptest.NewRequest(http.MethodDelete, "/documents/8", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("file already gone", func(t *testing.T) {
		documents.EXPECT().GetByID(gomock.Any(), int64(4)).
			Return(&storage.DocumentRecord{ID: 4, Name: "gone.pdf", FilePath: filepath.Join(uploadDir, "missing.pdf")}, nil)
		documents.EXPECT().Delete(gomock.Any(), int64(4)).Return(nil)

		req := httptest.NewRequest(http.MethodDelete, "/documents/4", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
	})
}

func TestDocumentsHandler_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	documents := mocks.NewMockDocumentStore(ctrl)
	handler := NewDocumentsHandler(documents, mocks.NewMockChatStore(ctrl), t.TempDir(), 1024)
	router := newDocumentsRouter(handler)

	t.Run("not found", func(t *testing.T) {
		documents.EXPECT().GetByID(gomock.Any(), int64(8)).Return(nil, storage.ErrNotFound)

		req := httptest.NewRequest(http.MethodGet, "/documents/8", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("found", func(t *testing.T) {
		documents.EXPECT().GetByID(gomock.Any(), int64(3)).
			Return(&storage.DocumentRecord{ID: 3, Name: "manual.pdf", Pages: 2, Size: 1234}, nil)

		req := httptest.NewRequest(http.MethodGet, "/documents/3", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("content missing on disk", func(t *testing.T) {
		documents.EXPECT().GetByID(gomock.Any(), int64(4)).
			Return(&storage.DocumentRecord{ID: 4, Name: "gone.pdf", FilePath: "/nonexistent/gone.pdf"}, nil)

		req := httptest.NewRequest(http.MethodGet, "/documents/4/content", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}
