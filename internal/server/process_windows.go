//go:build windows

package server

import (
	"os/exec"
	"syscall"
)

const _CREATE_NEW_CONSOLE = 0x00000010

// setPlatformProcessAttrs spawns the server with its own visible
// console window so its log output stays inspectable, matching how
// operators run start scripts by hand.
func setPlatformProcessAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: _CREATE_NEW_CONSOLE,
	}
}
