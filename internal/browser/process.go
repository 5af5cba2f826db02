package browser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"time"
)

// DefaultLaunchTimeout bounds how long the supervisor waits for the
// browser to announce its debugging endpoint before killing it.
const DefaultLaunchTimeout = 10 * time.Second

// ErrLaunchTimeout is returned when the watchdog fires before the
// endpoint announcement is observed.
var ErrLaunchTimeout = errors.New("timed out waiting for browser debugging endpoint")

// The browser announces its OS-assigned endpoint with a single
// fixed-layout line on stderr; the first match wins.
var devtoolsLine = regexp.MustCompile(`DevTools listening on ws://([^/:\s]+):(\d+)/devtools/browser/([^\s]+)`)

// Endpoint identifies a reachable debugging service. Immutable once
// resolved, either discovered from process output (local mode) or
// supplied externally (remote mode).
type Endpoint struct {
	Host      string
	Port      string
	BrowserID string // opaque id from the announcement line, empty in remote mode
}

// BrowserWSURL returns the browser-scoped WebSocket URL
func (e *Endpoint) BrowserWSURL() string {
	return fmt.Sprintf("ws://%s:%s/devtools/browser/%s", e.Host, e.Port, e.BrowserID)
}

// Process supervises one headless browser child for the lifetime of a
// single render. The supervisor owns the process exclusively until it
// exits or is forcibly killed.
type Process struct {
	BinaryPath    string
	ScratchDir    string
	LaunchTimeout time.Duration

	cmd    *exec.Cmd
	exitCh chan error
}

// NewProcess creates a supervisor for a browser binary with its home
// and profile pointed at the given scratch directory.
func NewProcess(binaryPath string, scratchDir string) *Process {
	return &Process{
		BinaryPath:    binaryPath,
		ScratchDir:    scratchDir,
		LaunchTimeout: DefaultLaunchTimeout,
	}
}

// Start launches the browser and blocks until it announces its
// debugging endpoint on stderr, the watchdog fires, or the process
// exits early. Exactly one of "endpoint observed" or "watchdog fired"
// proceeds; observing the endpoint disarms the watchdog.
func (p *Process) Start() (*Endpoint, error) {
	flags := launchFlags(p.ScratchDir)
	p.cmd = launchCommand(p.BinaryPath, p.ScratchDir, flags)

	// Hand the child a raw pipe fd for stderr. Handing over an os.File
	// keeps exec from interposing a copy goroutine, so Wait returns as
	// soon as the process exits even if grandchildren still hold the
	// pipe open.
	stderrReader, stderrWriter, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	p.cmd.Stderr = stderrWriter

	slog.Debug("launching browser", "binary", p.BinaryPath, "flags", renderFlags(flags))

	if err := p.cmd.Start(); err != nil {
		stderrReader.Close()
		stderrWriter.Close()
		return nil, fmt.Errorf("failed to start browser process: %w", err)
	}

	// The child holds its own dup of the write end
	stderrWriter.Close()

	// Exit notification
	p.exitCh = make(chan error, 1)
	go func() {
		p.exitCh <- p.cmd.Wait()
	}()

	// Scan the diagnostic stream line by line for the announcement,
	// then keep draining so the browser never blocks on a full pipe.
	endpointCh := make(chan *Endpoint, 1)
	go func() {
		defer stderrReader.Close()

		scanner := bufio.NewScanner(stderrReader)
		for scanner.Scan() {
			line := scanner.Text()
			slog.Debug("browser stderr", "line", line)

			if m := devtoolsLine.FindStringSubmatch(line); m != nil {
				endpointCh <- &Endpoint{Host: m[1], Port: m[2], BrowserID: m[3]}
				break
			}
		}
		io.Copy(io.Discard, stderrReader)
	}()

	select {
	case endpoint := <-endpointCh:
		slog.Info("browser ready", "host", endpoint.Host, "port", endpoint.Port, "pid", p.cmd.Process.Pid)
		return endpoint, nil

	case err := <-p.exitCh:
		p.exitCh = nil
		return nil, fmt.Errorf("browser exited before announcing endpoint: %v", exitStatus(p.cmd, err))

	case <-time.After(p.launchTimeout()):
		// Watchdog fired first: kill the child, collect its exit
		// status for diagnostics, and fail the launch. There is no
		// relaunch retry.
		slog.Warn("watchdog fired, killing browser", "pid", p.cmd.Process.Pid)
		if err := p.cmd.Process.Kill(); err != nil {
			slog.Warn("failed to kill browser after watchdog", "error", err)
		}
		err := <-p.exitCh
		p.exitCh = nil
		slog.Debug("browser killed by watchdog", "status", exitStatus(p.cmd, err))
		return nil, ErrLaunchTimeout
	}
}

// Stop terminates the browser. The exit status is observed for
// diagnostics only; whether a PDF was produced was decided before the
// process was asked to go away.
func (p *Process) Stop() error {
	if p.cmd == nil || p.cmd.Process == nil {
		return fmt.Errorf("process was never started")
	}

	// The browser may already be gone if it crashed after the render
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to kill browser process: %w", err)
	}

	if p.exitCh != nil {
		err := <-p.exitCh
		p.exitCh = nil
		slog.Debug("browser stopped", "status", exitStatus(p.cmd, err))
	}

	return nil
}

func (p *Process) launchTimeout() time.Duration {
	if p.LaunchTimeout > 0 {
		return p.LaunchTimeout
	}
	return DefaultLaunchTimeout
}

// exitStatus describes how the process ended, for logging
func exitStatus(cmd *exec.Cmd, waitErr error) string {
	if waitErr != nil {
		return waitErr.Error()
	}
	if state := cmd.ProcessState; state != nil {
		return state.String()
	}
	return "unknown"
}
