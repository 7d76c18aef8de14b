//go:build windows

package sandbox

import "os/exec"

// setupProcessGroup is a no-op on Windows; CommandContext kill is used.
func setupProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup kills the main process. Child processes of the script
// are not tracked on Windows.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

// peakRSSMB has no rusage equivalent on Windows; no sample is reported.
func peakRSSMB(cmd *exec.Cmd) float64 {
	return 0
}
