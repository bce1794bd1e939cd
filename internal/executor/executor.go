package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"runtime"
	"strings"

	"github.com/oshokin/autopak/internal/logger"
)

// exitInstruction terminates the interpreter after the fed command lines.
const exitInstruction = "exit"

// ErrShellUnavailable indicates that the command interpreter could not be started.
var ErrShellUnavailable = errors.New("command interpreter unavailable")

// Executor runs command lines in one interpreter session and returns the captured output.
//
// Only environment failures are returned as errors. A failing inner command is
// visible through the output text alone.
type Executor interface {
	Run(ctx context.Context, lines []string) (string, error)
}

// SystemShell feeds command lines to a spawned platform interpreter over stdin.
type SystemShell struct {
	// Path is the interpreter binary.
	Path string
	// Args are passed to the interpreter before any input is written.
	Args []string
}

// DefaultShellPath returns the platform interpreter: cmd.exe on Windows, /bin/sh elsewhere.
func DefaultShellPath() string {
	if runtime.GOOS == "windows" {
		return "cmd.exe"
	}

	return "/bin/sh"
}

// NewSystemShell creates a SystemShell for path, or for the platform default when path is empty.
func NewSystemShell(path string) *SystemShell {
	if path == "" {
		path = DefaultShellPath()
	}

	return &SystemShell{Path: path}
}

// Run starts the interpreter, writes every line followed by the exit instruction,
// reads stdout and stderr until they close and waits for the process.
func (s *SystemShell) Run(ctx context.Context, lines []string) (string, error) {
	cmd := exec.Command(s.Path, s.Args...) //nolint:gosec,noctx // The session must not be killed mid-command.
	hideWindow(cmd)

	var output bytes.Buffer

	cmd.Stdout = &output
	cmd.Stderr = &output

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", fmt.Errorf("open interpreter input: %w", err)
	}

	if err = cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return "", fmt.Errorf("%s: %w: %w", s.Path, ErrShellUnavailable, err)
		}

		return "", fmt.Errorf("start %s: %w", s.Path, err)
	}

	logger.DebugKV(ctx, "Interpreter session started", "shell", s.Path, "pid", cmd.Process.Pid)

	writeErr := feed(stdin, lines)
	closeErr := stdin.Close()

	waitErr := cmd.Wait()

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return output.String(), fmt.Errorf("wait for %s: %w", s.Path, waitErr)
	}

	if writeErr != nil {
		return output.String(), fmt.Errorf("write to %s: %w", s.Path, writeErr)
	}

	if closeErr != nil {
		return output.String(), fmt.Errorf("close %s input: %w", s.Path, closeErr)
	}

	logger.DebugKV(ctx, "Interpreter session finished", "shell", s.Path, "output", output.String())

	return output.String(), nil
}

// feed writes each command line and the exit instruction.
func feed(w io.Writer, lines []string) error {
	var script strings.Builder
	for _, line := range lines {
		script.WriteString(line)
		script.WriteString(lineEnding())
	}

	script.WriteString(exitInstruction)
	script.WriteString(lineEnding())

	_, err := io.WriteString(w, script.String())

	return err
}

func lineEnding() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}

	return "\n"
}
