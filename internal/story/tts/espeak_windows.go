//go:build windows

package tts

import "os/exec"

// interruptProcess stops a speaking subprocess on Windows.
// Windows has no SIGTERM equivalent for console children, so it is killed.
func interruptProcess(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
