//go:build windows

package browser

import "os/exec"

// launchCommand builds the child process for Windows: a plain launch
// with the flags as argv, no shell and no environment trimming.
func launchCommand(binaryPath string, scratchDir string, flags map[string]string) *exec.Cmd {
	return exec.Command(binaryPath, flagList(flags)...)
}
