package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/renderstack/pdfserve/internal/browser"
	"github.com/renderstack/pdfserve/internal/config"
	"github.com/renderstack/pdfserve/internal/render"
	"github.com/renderstack/pdfserve/internal/storage"
)

var testPDF = []byte("%PDF-1.4 handler test")

// newTestHandlers builds handlers with a stubbed render function
func newTestHandlers(t *testing.T, renderFn renderFunc) *Handlers {
	t.Helper()

	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	h := NewHandlers(&config.Config{ChromiumPath: "/usr/bin/chromium"}, store, nil)
	if renderFn != nil {
		h.render = renderFn
	}
	return h
}

func postRender(t *testing.T, h *Handlers, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/render", strings.NewReader(body))
	recorder := httptest.NewRecorder()
	h.Render(recorder, req)
	return recorder
}

func decodeError(t *testing.T, recorder *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()

	var response ErrorResponse
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return response
}

// TestRenderHandlerInline tests a successful inline render returning
// PDF bytes.
func TestRenderHandlerInline(t *testing.T) {
	var gotCfg render.Config
	h := newTestHandlers(t, func(ctx context.Context, cfg render.Config) ([]byte, error) {
		gotCfg = cfg
		return testPDF, nil
	})

	recorder := postRender(t, h, `{"html":"<p>hi</p>","print_params":{"landscape":true}}`)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body)
	}
	if ct := recorder.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("expected application/pdf, got %s", ct)
	}
	if !bytes.Equal(recorder.Body.Bytes(), testPDF) {
		t.Errorf("unexpected body: %q", recorder.Body.Bytes())
	}

	if gotCfg.HTML != "<p>hi</p>" {
		t.Errorf("html not passed through: %q", gotCfg.HTML)
	}
	if gotCfg.PrintParams["landscape"] != true {
		t.Errorf("print params not passed through: %v", gotCfg.PrintParams)
	}
	if gotCfg.BinaryPath != "/usr/bin/chromium" {
		t.Errorf("binary path not applied: %q", gotCfg.BinaryPath)
	}
}

// TestRenderHandlerStored tests the store path returning a file path
func TestRenderHandlerStored(t *testing.T) {
	h := newTestHandlers(t, func(ctx context.Context, cfg render.Config) ([]byte, error) {
		return testPDF, nil
	})

	recorder := postRender(t, h, `{"html":"<p>hi</p>","store":true,"filename":"out.pdf"}`)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body)
	}

	var response StoredRenderResponse
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Size != len(testPDF) {
		t.Errorf("expected size %d, got %d", len(testPDF), response.Size)
	}

	written, err := os.ReadFile(response.Path)
	if err != nil {
		t.Fatalf("stored artifact unreadable: %v", err)
	}
	if !bytes.Equal(written, testPDF) {
		t.Error("stored artifact differs from rendered bytes")
	}
}

// TestRenderHandlerNothingToPrint tests the misuse rejection before
// any render is attempted.
func TestRenderHandlerNothingToPrint(t *testing.T) {
	called := false
	h := newTestHandlers(t, func(ctx context.Context, cfg render.Config) ([]byte, error) {
		called = true
		return testPDF, nil
	})

	recorder := postRender(t, h, `{}`)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if response := decodeError(t, recorder); response.Error.Code != ErrCodeNothingToPrint {
		t.Errorf("expected %s, got %s", ErrCodeNothingToPrint, response.Error.Code)
	}
	if called {
		t.Error("render was attempted for an empty request")
	}
}

// TestRenderHandlerBadJSON tests the invalid-body rejection
func TestRenderHandlerBadJSON(t *testing.T) {
	h := newTestHandlers(t, nil)

	recorder := postRender(t, h, `{not json`)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if response := decodeError(t, recorder); response.Error.Code != ErrCodeInvalidRequest {
		t.Errorf("expected %s, got %s", ErrCodeInvalidRequest, response.Error.Code)
	}
}

// TestRenderHandlerLaunchTimeout tests error classification for the
// watchdog failure.
func TestRenderHandlerLaunchTimeout(t *testing.T) {
	h := newTestHandlers(t, func(ctx context.Context, cfg render.Config) ([]byte, error) {
		return nil, browser.ErrLaunchTimeout
	})

	recorder := postRender(t, h, `{"url":"https://example.com"}`)

	if recorder.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", recorder.Code)
	}
	if response := decodeError(t, recorder); response.Error.Code != ErrCodeLaunchTimeout {
		t.Errorf("expected %s, got %s", ErrCodeLaunchTimeout, response.Error.Code)
	}
}

// TestVersionHandlerLocalMode verifies the version query is rejected
// when no remote browser is configured.
func TestVersionHandlerLocalMode(t *testing.T) {
	h := newTestHandlers(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	recorder := httptest.NewRecorder()
	h.Version(recorder, req)

	if recorder.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", recorder.Code)
	}
	if response := decodeError(t, recorder); response.Error.Code != ErrCodeNotRemote {
		t.Errorf("expected %s, got %s", ErrCodeNotRemote, response.Error.Code)
	}
}

// TestHealthz tests the health endpoint
func TestHealthz(t *testing.T) {
	h := newTestHandlers(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	recorder := httptest.NewRecorder()
	h.Healthz(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
}
