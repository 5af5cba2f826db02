package cdp

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// VersionInfo is the browser's answer to the version-discovery query
type VersionInfo struct {
	Browser              string `json:"Browser"`
	ProtocolVersion      string `json:"Protocol-Version"`
	UserAgent            string `json:"User-Agent"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// QueryVersion asks a running browser for its version info and
// browser-level WebSocket URL via http://host:port/json/version.
// One synchronous call, no retries; a non-200 status is a resolution
// failure the caller decides how to handle.
func QueryVersion(host string, port string) (*VersionInfo, error) {
	if host == "" {
		host = "localhost"
	}

	url := fmt.Sprintf("http://%s:%s/json/version", host, port)

	response, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolveFailed, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrResolveFailed, response.StatusCode)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var info VersionInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse version response: %w", err)
	}

	if info.WebSocketDebuggerURL == "" {
		return nil, fmt.Errorf("%w: no browser WebSocket URL in version response", ErrResolveFailed)
	}

	return &info, nil
}

// MajorVersion extracts the major version number from a Browser string
// such as "HeadlessChrome/104.0.5112.79". Returns false when the
// version part does not start with digits.
func MajorVersion(browser string) (int, bool) {
	version := browser
	if idx := strings.LastIndex(browser, "/"); idx >= 0 {
		version = browser[idx+1:]
	}

	// Take the leading run of digits
	end := 0
	for end < len(version) && version[end] >= '0' && version[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}

	major, err := strconv.Atoi(version[:end])
	if err != nil {
		return 0, false
	}

	return major, true
}

// PageURL builds the page-scoped WebSocket URL for a target id
func PageURL(host string, port string, targetID string) string {
	return fmt.Sprintf("ws://%s:%s/devtools/page/%s", host, port, targetID)
}
