//go:build !windows

package server

import (
	"os"
	"os/exec"
	"syscall"
)

// setPlatformProcessAttrs attaches the server to the activator's own
// standard streams (there is no detachable console concept here) and
// gives it its own process group so terminal signals aimed at the
// activator do not reach the server directly.
func setPlatformProcessAttrs(cmd *exec.Cmd) {
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
