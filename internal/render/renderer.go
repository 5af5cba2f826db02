package render

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/renderstack/pdfserve/internal/browser"
	"github.com/renderstack/pdfserve/internal/cdp"
	"github.com/renderstack/pdfserve/internal/storage"
)

// Config is the immutable input to one render, built once before the
// render begins. Exactly one of URL or HTML should be set; URL wins
// when both are. Endpoint selects remote mode; otherwise a browser is
// spawned from BinaryPath for the duration of the render.
type Config struct {
	URL         string
	HTML        string
	PrintParams map[string]interface{}

	// Local mode
	BinaryPath string
	ScratchDir string // empty means a private temp dir per render

	// Remote mode
	Endpoint *browser.Endpoint

	LaunchTimeout   time.Duration
	PageReadTimeout time.Duration
}

// Renderer turns one Config into PDF bytes by driving a headless
// browser through its debugging protocol.
type Renderer struct {
	cfg  Config
	dial func(wsURL string, readTimeout time.Duration) (cdp.Conn, error)
}

// New creates a Renderer for the given configuration
func New(cfg Config) *Renderer {
	return &Renderer{cfg: cfg, dial: cdp.Dial}
}

// Render runs the full workflow and returns the decoded PDF bytes.
// Every fatal condition aborts the remaining steps; there are no
// retries. Cleanup after a failure past target creation is
// best-effort only.
func (r *Renderer) Render(ctx context.Context) ([]byte, error) {
	// Misuse is rejected before any resource is touched
	if r.cfg.URL == "" && r.cfg.HTML == "" {
		return nil, ErrNothingToPrint
	}

	endpoint, browserWSURL, cleanup, err := r.resolveEndpoint()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Browser-level connection
	browserConn, err := r.dial(browserWSURL, cdp.DefaultReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	browserClient := cdp.NewClient(browserConn)

	// Create the tab this render owns. Exactly one target per render,
	// no reuse.
	targetID, err := r.createTarget(browserClient)
	if err != nil {
		return nil, err
	}

	// Page-level connection, opened only after target creation
	// succeeded. Longer read timeout to accommodate slow renders.
	pageConn, err := r.dial(cdp.PageURL(endpoint.Host, endpoint.Port, targetID), r.pageReadTimeout())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to page: %w", err)
	}
	pageClient := cdp.NewClient(pageConn)

	pdf, err := r.renderPage(ctx, pageClient, targetID)
	if err != nil {
		return nil, err
	}

	// Teardown: page connection first, then the target, then the
	// browser connection.
	if err := pageClient.Close(); err != nil {
		return nil, fmt.Errorf("failed to close page connection: %w", err)
	}

	if err := r.closeTarget(browserClient, targetID); err != nil {
		return nil, err
	}

	// Some browser builds drop the browser-level socket without a
	// clean close handshake once their last target is gone. Expected,
	// logged, never fatal.
	if err := browserClient.Close(); err != nil {
		slog.Warn("browser connection closed uncleanly", "error", err)
	}

	return pdf, nil
}

// RenderToFile renders and hands the artifact to a store, returning
// the stored path.
func (r *Renderer) RenderToFile(ctx context.Context, store storage.Store, name string) (string, error) {
	pdf, err := r.Render(ctx)
	if err != nil {
		return "", err
	}

	path, err := store.Create(name, pdf)
	if err != nil {
		return "", fmt.Errorf("failed to store PDF: %w", err)
	}

	return path, nil
}

// resolveEndpoint produces a reachable debugging endpoint and the
// browser-scoped WebSocket URL: remote mode queries the version
// endpoint, local mode spawns a supervised browser. The cleanup func
// tears down whatever was created.
func (r *Renderer) resolveEndpoint() (*browser.Endpoint, string, func(), error) {
	noop := func() {}

	if r.cfg.Endpoint != nil {
		info, err := cdp.QueryVersion(r.cfg.Endpoint.Host, r.cfg.Endpoint.Port)
		if err != nil {
			return nil, "", noop, err
		}
		slog.Debug("using remote browser", "browser", info.Browser)
		return r.cfg.Endpoint, info.WebSocketDebuggerURL, noop, nil
	}

	// Local mode: private scratch directory per invocation unless the
	// caller supplied one
	scratchDir := r.cfg.ScratchDir
	removeScratch := func() {}
	if scratchDir == "" {
		dir, err := os.MkdirTemp("", "pdfserve-*")
		if err != nil {
			return nil, "", noop, fmt.Errorf("failed to create scratch directory: %w", err)
		}
		scratchDir = dir
		removeScratch = func() {
			if err := os.RemoveAll(dir); err != nil {
				slog.Warn("failed to remove scratch directory", "dir", dir, "error", err)
			}
		}
	}

	proc := browser.NewProcess(r.cfg.BinaryPath, scratchDir)
	if r.cfg.LaunchTimeout > 0 {
		proc.LaunchTimeout = r.cfg.LaunchTimeout
	}

	endpoint, err := proc.Start()
	if err != nil {
		removeScratch()
		return nil, "", noop, err
	}

	cleanup := func() {
		if err := proc.Stop(); err != nil {
			slog.Warn("failed to stop browser", "error", err)
		}
		removeScratch()
	}

	return endpoint, endpoint.BrowserWSURL(), cleanup, nil
}

// renderPage drives the page-level protocol sequence: enable events,
// load content, print.
func (r *Renderer) renderPage(ctx context.Context, pageClient *cdp.Client, targetID string) ([]byte, error) {
	// Page.enable answers with an empty object; anything else means a
	// protocol version this workflow does not understand.
	result, err := pageClient.Call("Page.enable", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to enable page events: %w", err)
	}
	if !isEmptyResult(result) {
		return nil, ErrEventsNotEnabled
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.cfg.URL != "" {
		if err := r.navigate(pageClient); err != nil {
			return nil, err
		}
	} else {
		// Inline content path: the document is injected directly and
		// the call returning is the load completion, no event wait.
		// The frame is addressed by the target id.
		_, err := pageClient.Call("Page.setDocumentContent", map[string]interface{}{
			"frameId": targetID,
			"html":    r.cfg.HTML,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to set document content: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return r.printToPDF(pageClient)
}

// navigate loads the configured URL and blocks until the frame we
// navigated reports that it stopped loading.
func (r *Renderer) navigate(pageClient *cdp.Client) error {
	result, err := pageClient.Call("Page.navigate", map[string]interface{}{
		"url": r.cfg.URL,
	})
	if err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}

	var nav struct {
		FrameID string `json:"frameId"`
	}
	if err := json.Unmarshal(result, &nav); err != nil {
		return fmt.Errorf("failed to decode navigate result: %w", err)
	}
	if nav.FrameID == "" {
		return ErrNoFrameID
	}

	_, err = pageClient.AwaitEvent("Page.frameStoppedLoading", map[string]interface{}{
		"frameId": nav.FrameID,
	})
	if err != nil {
		return fmt.Errorf("failed waiting for page load: %w", err)
	}

	return nil
}

// printToPDF invokes the print command and decodes the base64 payload
func (r *Renderer) printToPDF(pageClient *cdp.Client) ([]byte, error) {
	// Caller parameters are forwarded verbatim, merged with the two
	// fixed settings every render uses.
	params := map[string]interface{}{
		"printBackground": true,
		"transferMode":    "ReturnAsBase64",
	}
	for key, value := range r.cfg.PrintParams {
		params[key] = value
	}

	result, err := pageClient.Call("Page.printToPDF", params)
	if err != nil {
		return nil, fmt.Errorf("failed to print to PDF: %w", err)
	}

	var print struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(result, &print); err != nil {
		return nil, fmt.Errorf("failed to decode print result: %w", err)
	}
	if print.Data == "" {
		return nil, ErrEmptyPDF
	}

	pdf, err := base64.StdEncoding.DecodeString(print.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PDF data: %w", err)
	}

	return pdf, nil
}

// createTarget opens a blank tab and returns its id
func (r *Renderer) createTarget(browserClient *cdp.Client) (string, error) {
	result, err := browserClient.Call("Target.createTarget", map[string]interface{}{
		"url": "about:blank",
	})
	if err != nil {
		return "", fmt.Errorf("failed to create target: %w", err)
	}

	var target struct {
		TargetID string `json:"targetId"`
	}
	if err := json.Unmarshal(result, &target); err != nil {
		return "", fmt.Errorf("failed to decode createTarget result: %w", err)
	}
	if target.TargetID == "" {
		return "", ErrNoTargetID
	}

	return target.TargetID, nil
}

// closeTarget closes the tab and requires a success acknowledgment
func (r *Renderer) closeTarget(browserClient *cdp.Client, targetID string) error {
	result, err := browserClient.Call("Target.closeTarget", map[string]interface{}{
		"targetId": targetID,
	})
	if err != nil {
		return fmt.Errorf("failed to close target: %w", err)
	}

	var ack struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(result, &ack); err != nil {
		return fmt.Errorf("failed to decode closeTarget result: %w", err)
	}
	if !ack.Success {
		return ErrCloseRejected
	}

	return nil
}

func (r *Renderer) pageReadTimeout() time.Duration {
	if r.cfg.PageReadTimeout > 0 {
		return r.cfg.PageReadTimeout
	}
	return cdp.PageReadTimeout
}

// isEmptyResult reports whether a result payload is the empty object
func isEmptyResult(result json.RawMessage) bool {
	var m map[string]interface{}
	if err := json.Unmarshal(result, &m); err != nil {
		return false
	}
	return len(m) == 0
}
