//go:build !windows

package executor

import "os/exec"

// hideWindow is a no-op where spawned processes have no console window.
func hideWindow(_ *exec.Cmd) {}
