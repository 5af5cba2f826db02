package api

// Request Types

// RenderRequest for POST /render. Exactly one of URL or HTML must be
// set. PrintParams is forwarded verbatim to the browser's print call.
type RenderRequest struct {
	URL         string                 `json:"url,omitempty"`
	HTML        string                 `json:"html,omitempty"`
	PrintParams map[string]interface{} `json:"print_params,omitempty"`

	// Store writes the artifact to the output directory instead of
	// returning the bytes inline
	Store    bool   `json:"store,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// Response Types

// StoredRenderResponse returned when the artifact was written to disk
type StoredRenderResponse struct {
	Path string `json:"path"`
	Size int    `json:"size"`
}

// VersionResponse for GET /version
type VersionResponse struct {
	Browser      string `json:"browser"`
	MajorVersion int    `json:"major_version,omitempty"`
}

// ErrorResponse for all error cases
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string `json:"code"`    // Machine-readable error code
	Message string `json:"message"` // Human-readable message
}

// Common error codes
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeNothingToPrint = "NOTHING_TO_PRINT"
	ErrCodeLaunchTimeout  = "BROWSER_LAUNCH_TIMEOUT"
	ErrCodeProtocolError  = "PROTOCOL_ERROR"
	ErrCodeResolveFailed  = "ENDPOINT_RESOLVE_FAILED"
	ErrCodeRenderFailed   = "RENDER_FAILED"
	ErrCodeStorageFailed  = "STORAGE_FAILED"
	ErrCodeVersionQuery   = "VERSION_QUERY_FAILED"
	ErrCodeNotRemote      = "NOT_REMOTE_MODE"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)
