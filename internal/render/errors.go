package render

import "errors"

// Sentinel errors for the render workflow. Contract violations get a
// distinct error per violated expectation so failures point at the
// exact step that broke.
var (
	// ErrNothingToPrint is a caller-contract violation, not a runtime
	// condition: the configuration carries neither a URL nor a document.
	ErrNothingToPrint = errors.New("nothing to print: no URL or document configured")

	ErrNoTargetID       = errors.New("browser did not return a target id")
	ErrNoFrameID        = errors.New("browser did not return a frame id")
	ErrEmptyPDF         = errors.New("browser returned empty PDF data")
	ErrEventsNotEnabled = errors.New("enabling page events returned an unexpected result")
	ErrCloseRejected    = errors.New("browser did not acknowledge target close")
)
