//go:build unix

package tts

import (
	"os/exec"
	"syscall"
)

// interruptProcess asks a speaking subprocess to terminate on Unix systems
func interruptProcess(cmd *exec.Cmd) error {
	return cmd.Process.Signal(syscall.SIGTERM)
}
