package autopak

import (
	"context"
	"os"
	"runtime"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/autopak/internal/logger"
)

// runGuard detects a packer started by another run that may still use the staging link.
type runGuard struct {
	// executable is the packer's base file name as shown in the process table.
	executable string
	// processes lists running processes; replaced in tests.
	processes func() ([]ps.Process, error)
}

func newRunGuard(executable string) *runGuard {
	return &runGuard{
		executable: executable,
		processes:  ps.Processes,
	}
}

// PackerRunning reports whether a process other than this one runs the packer.
// An unreadable process table counts as not running: the link check still applies.
func (g *runGuard) PackerRunning(ctx context.Context) bool {
	processList, err := g.processes()
	if err != nil {
		logger.WarnKV(ctx, "Unable to list processes", "error", err)
		return false
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if sameExecutable(process.Executable(), g.executable) {
			logger.InfoKV(ctx, "Packer is already running", "pid", process.Pid(), "executable", process.Executable())
			return true
		}
	}

	return false
}

func sameExecutable(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}

	return a == b
}
