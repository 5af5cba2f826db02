package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/renderstack/pdfserve/internal/browser"
	"github.com/renderstack/pdfserve/internal/cdp"
	"github.com/renderstack/pdfserve/internal/config"
	"github.com/renderstack/pdfserve/internal/render"
	"github.com/renderstack/pdfserve/internal/storage"
)

// renderFunc runs one render; swapped for a stub in handler tests
type renderFunc func(ctx context.Context, cfg render.Config) ([]byte, error)

// Handlers contains HTTP handlers for the API
type Handlers struct {
	cfg    *config.Config
	store  storage.Store
	cache  *storage.RenderCache // nil when Redis is not configured
	render renderFunc
}

// NewHandlers creates a new Handlers instance
func NewHandlers(cfg *config.Config, store storage.Store, cache *storage.RenderCache) *Handlers {
	return &Handlers{
		cfg:   cfg,
		store: store,
		cache: cache,
		render: func(ctx context.Context, rc render.Config) ([]byte, error) {
			return render.New(rc).Render(ctx)
		},
	}
}

// Render handles POST /render
func (h *Handlers) Render(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}

	if req.URL == "" && req.HTML == "" {
		writeError(w, http.StatusBadRequest, ErrCodeNothingToPrint, render.ErrNothingToPrint.Error())
		return
	}

	// Cache-aside: identical input means identical output
	var cacheKey string
	if h.cache != nil {
		cacheKey = storage.CacheKey(req.URL, req.HTML, req.PrintParams)
		if pdf, err := h.cache.Get(r.Context(), cacheKey); err != nil {
			slog.Warn("cache lookup failed", "error", err)
		} else if pdf != nil {
			slog.Debug("cache hit", "key", cacheKey)
			h.respond(w, req, pdf)
			return
		}
	}

	pdf, err := h.render(r.Context(), h.renderConfig(req))
	if err != nil {
		status, code := classifyRenderError(err)
		writeError(w, status, code, err.Error())
		return
	}

	if h.cache != nil {
		if err := h.cache.Put(r.Context(), cacheKey, pdf); err != nil {
			slog.Warn("cache store failed", "error", err)
		}
	}

	h.respond(w, req, pdf)
}

// respond returns the artifact inline or writes it through the store
func (h *Handlers) respond(w http.ResponseWriter, req RenderRequest, pdf []byte) {
	if !req.Store {
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(pdf); err != nil {
			slog.Warn("failed to write PDF response", "error", err)
		}
		return
	}

	name := req.Filename
	if name == "" {
		name = "render-" + time.Now().UTC().Format("20060102-150405.000") + ".pdf"
	}

	path, err := h.store.Create(name, pdf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeStorageFailed, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, StoredRenderResponse{Path: path, Size: len(pdf)})
}

// renderConfig combines service configuration with one request
func (h *Handlers) renderConfig(req RenderRequest) render.Config {
	rc := render.Config{
		URL:             req.URL,
		HTML:            req.HTML,
		PrintParams:     req.PrintParams,
		BinaryPath:      h.cfg.ChromiumPath,
		LaunchTimeout:   h.cfg.LaunchTimeout,
		PageReadTimeout: h.cfg.PageReadTimeout,
	}

	if h.cfg.RemoteDebugAddr != "" {
		host, port, _ := net.SplitHostPort(h.cfg.RemoteDebugAddr)
		rc.Endpoint = &browser.Endpoint{Host: host, Port: port}
	}

	return rc
}

// Version handles GET /version. Only meaningful in remote mode; local
// mode has no browser running between renders to ask.
func (h *Handlers) Version(w http.ResponseWriter, r *http.Request) {
	if h.cfg.RemoteDebugAddr == "" {
		writeError(w, http.StatusConflict, ErrCodeNotRemote, "version query requires REMOTE_DEBUG_ADDR")
		return
	}

	host, port, _ := net.SplitHostPort(h.cfg.RemoteDebugAddr)
	info, err := cdp.QueryVersion(host, port)
	if err != nil {
		writeError(w, http.StatusBadGateway, ErrCodeVersionQuery, err.Error())
		return
	}

	response := VersionResponse{Browser: info.Browser}
	if major, ok := cdp.MajorVersion(info.Browser); ok {
		response.MajorVersion = major
	}

	writeJSON(w, http.StatusOK, response)
}

// Healthz handles GET /healthz
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// classifyRenderError maps workflow failures to status and error codes
func classifyRenderError(err error) (int, string) {
	var protocolErr *cdp.ProtocolError

	switch {
	case errors.Is(err, render.ErrNothingToPrint):
		return http.StatusBadRequest, ErrCodeNothingToPrint
	case errors.Is(err, browser.ErrLaunchTimeout):
		return http.StatusGatewayTimeout, ErrCodeLaunchTimeout
	case errors.Is(err, cdp.ErrResolveFailed):
		return http.StatusBadGateway, ErrCodeResolveFailed
	case errors.As(err, &protocolErr), errors.Is(err, cdp.ErrUnknownResponse):
		return http.StatusBadGateway, ErrCodeProtocolError
	default:
		return http.StatusInternalServerError, ErrCodeRenderFailed
	}
}

// writeJSON writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// writeError writes a structured error response
func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}
