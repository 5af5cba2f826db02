//go:build !windows

package browser

import "os/exec"

// launchCommand builds the child process for POSIX platforms. The
// shell replaces itself with the browser via exec, so termination
// signals reach the browser directly instead of an intermediate shell.
// The environment is explicit and minimal: only HOME, pointed at the
// scratch directory.
func launchCommand(binaryPath string, scratchDir string, flags map[string]string) *exec.Cmd {
	line := "exec " + shellQuote(binaryPath) + " " + renderFlags(flags)
	cmd := exec.Command("/bin/sh", "-c", line)
	cmd.Env = []string{"HOME=" + scratchDir}
	return cmd
}
