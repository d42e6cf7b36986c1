package http_test

import (
	"context"
	"io"
	"log/slog"
	nethttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/mock/gomock"

	internalhttp "pdfchat-ai/internal/http"
	"pdfchat-ai/internal/rag"
	"pdfchat-ai/internal/storage"
	"pdfchat-ai/internal/storage/mocks"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type noopEngine struct{}

func (noopEngine) ProcessMessage(context.Context, int64, string) (rag.Result, error) {
	return rag.Result{}, nil
}

func newTestRouter(t *testing.T, ctrl *gomock.Controller) nethttp.Handler {
	t.Helper()

	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return internalhttp.NewRouter(&internalhttp.Deps{
		DB:             db,
		Chats:          mocks.NewMockChatStore(ctrl),
		Documents:      mocks.NewMockDocumentStore(ctrl),
		Messages:       mocks.NewMockMessageStore(ctrl),
		Engine:         noopEngine{},
		UploadDir:      t.TempDir(),
		MaxUploadBytes: 1024 * 1024,
	})
}

func TestRouter_Health(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := newTestRouter(t, ctrl)

	req := httptest.NewRequest(nethttp.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != nethttp.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := newTestRouter(t, ctrl)

	req := httptest.NewRequest(nethttp.MethodGet, "/api/unknown", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != nethttp.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := newTestRouter(t, ctrl)

	req := httptest.NewRequest(nethttp.MethodOptions, "/api/chats", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != nethttp.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
