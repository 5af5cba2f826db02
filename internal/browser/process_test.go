package browser

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// writeStubBrowser writes an executable script standing in for the
// browser binary
func writeStubBrowser(t *testing.T, script string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("stub browser scripts require a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "stub-browser")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("failed to write stub browser: %v", err)
	}
	return path
}

// TestStartObservesAnnouncement verifies the supervisor extracts the
// endpoint from the announcement line and disarms the watchdog.
func TestStartObservesAnnouncement(t *testing.T) {
	stub := writeStubBrowser(t,
		"echo 'DevTools listening on ws://127.0.0.1:9333/devtools/browser/abc-123' >&2\nsleep 30\n")

	proc := NewProcess(stub, t.TempDir())
	proc.LaunchTimeout = 5 * time.Second

	endpoint, err := proc.Start()
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer proc.Stop()

	if endpoint.Host != "127.0.0.1" {
		t.Errorf("expected host 127.0.0.1, got %s", endpoint.Host)
	}
	if endpoint.Port != "9333" {
		t.Errorf("expected port 9333, got %s", endpoint.Port)
	}
	if endpoint.BrowserID != "abc-123" {
		t.Errorf("expected browser id abc-123, got %s", endpoint.BrowserID)
	}

	expected := "ws://127.0.0.1:9333/devtools/browser/abc-123"
	if endpoint.BrowserWSURL() != expected {
		t.Errorf("expected %s, got %s", expected, endpoint.BrowserWSURL())
	}
}

// TestStartWatchdogTimeout verifies that when no announcement line is
// produced within the configured interval, Start fails with the
// timeout error and the child process is terminated.
func TestStartWatchdogTimeout(t *testing.T) {
	stub := writeStubBrowser(t, "sleep 30\n")

	proc := NewProcess(stub, t.TempDir())
	proc.LaunchTimeout = 200 * time.Millisecond

	start := time.Now()
	_, err := proc.Start()
	elapsed := time.Since(start)

	if !errors.Is(err, ErrLaunchTimeout) {
		t.Fatalf("expected ErrLaunchTimeout, got %v", err)
	}

	// The watchdog fired, not the 30s sleep ending
	if elapsed > 5*time.Second {
		t.Errorf("Start took %v, watchdog did not fire", elapsed)
	}

	// Start collects the exit status after killing the child, so a
	// populated ProcessState proves the termination request landed
	if proc.cmd.ProcessState == nil {
		t.Error("child process was not terminated")
	}
}

// TestStartExitBeforeAnnouncement verifies a browser that dies without
// announcing fails the launch immediately.
func TestStartExitBeforeAnnouncement(t *testing.T) {
	stub := writeStubBrowser(t, "echo 'something went wrong' >&2\nexit 3\n")

	proc := NewProcess(stub, t.TempDir())
	proc.LaunchTimeout = 5 * time.Second

	_, err := proc.Start()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "exited before announcing") {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestStopTerminatesProcess tests the stop path after a successful start
func TestStopTerminatesProcess(t *testing.T) {
	stub := writeStubBrowser(t,
		"echo 'DevTools listening on ws://127.0.0.1:9400/devtools/browser/x' >&2\nsleep 30\n")

	proc := NewProcess(stub, t.TempDir())

	if _, err := proc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := proc.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if proc.cmd.ProcessState == nil {
		t.Error("process state not collected after Stop")
	}
}

// TestStopNeverStarted tests stopping a supervisor that never launched
func TestStopNeverStarted(t *testing.T) {
	proc := NewProcess("/nonexistent", t.TempDir())

	if err := proc.Stop(); err == nil {
		t.Fatal("expected error for never-started process")
	}
}

// TestAnnouncementPattern verifies the fixed-layout line parses and
// close variants do not.
func TestAnnouncementPattern(t *testing.T) {
	m := devtoolsLine.FindStringSubmatch(
		"DevTools listening on ws://127.0.0.1:33411/devtools/browser/7d2f53b0-6ff3-4129-a32e-6b7f2a6d9c55")
	if m == nil {
		t.Fatal("announcement line did not match")
	}
	if m[1] != "127.0.0.1" || m[2] != "33411" || m[3] != "7d2f53b0-6ff3-4129-a32e-6b7f2a6d9c55" {
		t.Errorf("unexpected captures: %v", m[1:])
	}

	if devtoolsLine.MatchString("[0830/120000.123:ERROR:bus.cc] Failed to connect to the bus") {
		t.Error("noise line matched the announcement pattern")
	}
}
