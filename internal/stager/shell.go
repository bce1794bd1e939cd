package stager

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/oshokin/autopak/internal/executor"
	"github.com/oshokin/autopak/internal/logger"
)

// statusMarker prefixes the line that reports the exit status of the link command.
const statusMarker = "autopak-status:"

var (
	// ErrInnerCommandFailed is returned when the link command ran but reported failure.
	ErrInnerCommandFailed = errors.New("link command failed")
	// ErrUnsupportedPath is returned when a path cannot be passed to cmd.exe unchanged.
	ErrUnsupportedPath = errors.New("path cannot be quoted for cmd.exe")
	// errNoStatus is returned when the session output carries no status line.
	errNoStatus = errors.New("no status reported")
)

// CommandError is an inner command failure with the session output attached.
type CommandError struct {
	// Command is the link command that failed.
	Command string
	// Status is the reported exit status, or -1 when none was reported.
	Status int
	// Output is the captured session output.
	Output string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s (status %d): %s", e.Command, e.Status, strings.TrimSpace(e.Output))
}

// Is makes CommandError match ErrInnerCommandFailed.
func (*CommandError) Is(target error) bool {
	return target == ErrInnerCommandFailed
}

// Dialect renders the directory link commands of one interpreter family.
type Dialect struct {
	// Create returns the command making link point at target.
	Create func(link, target string) (string, error)
	// Remove returns the command deleting link.
	Remove func(link string) (string, error)
	// Status is a line printing statusMarker followed by the previous command's exit status.
	Status string
}

// PosixDialect uses ln and rm. The -n flag keeps ln from descending into an existing link.
func PosixDialect() Dialect {
	return Dialect{
		Create: func(link, target string) (string, error) {
			return posixCommand("ln", "-sn", "--", target, link)
		},
		Remove: func(link string) (string, error) {
			return posixCommand("rm", "--", link)
		},
		Status: `echo "` + statusMarker + `$?"`,
	}
}

// WindowsDialect uses cmd.exe mklink and rmdir.
// Paths with % or " are rejected: an interactive cmd.exe expands variables
// inside quotes and has no escape for them there.
func WindowsDialect() Dialect {
	return Dialect{
		Create: func(link, target string) (string, error) {
			return windowsCommand(`mklink /D "%s" "%s"`, link, target)
		},
		Remove: func(link string) (string, error) {
			return windowsCommand(`rmdir "%s"`, link)
		},
		Status: "echo " + statusMarker + "%ERRORLEVEL%",
	}
}

func windowsCommand(format string, paths ...string) (string, error) {
	args := make([]any, 0, len(paths))
	for _, path := range paths {
		if strings.ContainsAny(path, `%"`) {
			return "", fmt.Errorf("%s: %w", path, ErrUnsupportedPath)
		}

		args = append(args, path)
	}

	return fmt.Sprintf(format, args...), nil
}

func posixCommand(words ...string) (string, error) {
	quoted := make([]string, 0, len(words))
	for _, word := range words {
		q, err := syntax.Quote(word, syntax.LangPOSIX)
		if err != nil {
			return "", fmt.Errorf("quote %q: %w", word, err)
		}

		quoted = append(quoted, q)
	}

	return strings.Join(quoted, " "), nil
}

// ShellLinker manages the staging link through command interpreter sessions,
// one session per operation.
type ShellLinker struct {
	executor executor.Executor
	dialect  Dialect
}

// NewShellLinker creates a ShellLinker running dialect commands on exec.
func NewShellLinker(exec executor.Executor, dialect Dialect) *ShellLinker {
	return &ShellLinker{
		executor: exec,
		dialect:  dialect,
	}
}

// CreateLink runs the dialect's create command.
func (s *ShellLinker) CreateLink(ctx context.Context, link, target string) error {
	if err := ensureAbsent(link); err != nil {
		return err
	}

	command, err := s.dialect.Create(link, target)
	if err != nil {
		return err
	}

	return s.run(ctx, command)
}

// RemoveLink runs the dialect's remove command after checking link is a symbolic link.
func (s *ShellLinker) RemoveLink(ctx context.Context, link string) error {
	if err := ensureLink(link); err != nil {
		return err
	}

	command, err := s.dialect.Remove(link)
	if err != nil {
		return err
	}

	return s.run(ctx, command)
}

func (s *ShellLinker) run(ctx context.Context, command string) error {
	output, err := s.executor.Run(ctx, []string{command, s.dialect.Status})
	if err != nil {
		return err
	}

	logger.DebugKV(ctx, "Link command output", "command", command, "output", output)

	status, err := parseStatus(output)
	if err != nil {
		return &CommandError{Command: command, Status: -1, Output: output}
	}

	if status != 0 {
		return &CommandError{Command: command, Status: status, Output: output}
	}

	return nil
}

// parseStatus returns the status from the last marker line of output.
func parseStatus(output string) (int, error) {
	var (
		status int
		found  bool
	)

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// cmd.exe echoes the prompt and the command itself before running it.
		idx := strings.LastIndex(line, statusMarker)
		if idx < 0 {
			continue
		}

		value, err := strconv.Atoi(strings.TrimSpace(line[idx+len(statusMarker):]))
		if err != nil {
			continue
		}

		status, found = value, true
	}

	if !found {
		return 0, errNoStatus
	}

	return status, nil
}

// DialectFor picks the command family for an interpreter: the in-process
// interpreter is always POSIX, the system one follows goos.
func DialectFor(goos string, virtual bool) Dialect {
	if goos == "windows" && !virtual {
		return WindowsDialect()
	}

	return PosixDialect()
}
