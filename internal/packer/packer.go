package packer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"

	"github.com/oshokin/autopak/internal/logger"
)

// ArchiveExtension is appended to the source folder path to name the archive.
const ArchiveExtension = ".pak"

var (
	// ErrPackerNotFound is returned when the packer binary cannot be located or started.
	ErrPackerNotFound = errors.New("packer not found")
	// ErrPackerFailed is returned when the packer exits with a non-zero status.
	ErrPackerFailed = errors.New("packer failed")
)

// Invocation describes one packer run.
type Invocation struct {
	// Binary is the packer executable path.
	Binary string
	// Args are the command line arguments.
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Stdout and Stderr receive the packer output; nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// ArchivePath returns the archive produced for sourceDir.
func ArchivePath(sourceDir string) string {
	return sourceDir + ArchiveExtension
}

// Arguments builds the packer command line: the archive, the manifest and extra flags.
func Arguments(sourceDir, manifestPath string, extra []string) []string {
	args := make([]string, 0, len(extra)+2)
	args = append(args, ArchivePath(sourceDir), "-Create="+manifestPath)

	return append(args, extra...)
}

// Invoke starts the packer directly, without an interpreter, and waits for it to exit.
func Invoke(ctx context.Context, inv *Invocation) error {
	if _, err := os.Stat(inv.Binary); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", inv.Binary, ErrPackerNotFound)
		}

		return fmt.Errorf("stat %s: %w", inv.Binary, err)
	}

	cmd := exec.Command(inv.Binary, inv.Args...) //nolint:gosec,noctx // A packer run is never interrupted.
	cmd.Dir = inv.Dir
	cmd.Stdout = inv.Stdout
	cmd.Stderr = inv.Stderr

	logger.InfoKV(ctx, "Starting packer", "binary", inv.Binary, "args", inv.Args)

	// Any start failure (bad format, no execute bit) means there is no usable packer.
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w: %w", inv.Binary, ErrPackerNotFound, err)
	}

	err := cmd.Wait()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%s exited with status %d: %w", inv.Binary, exitErr.ExitCode(), ErrPackerFailed)
	}

	return fmt.Errorf("wait for %s: %w", inv.Binary, err)
}
