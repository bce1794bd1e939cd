package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/oshokin/autopak/internal/logger"
)

// VirtualShell runs command lines in an in-process POSIX interpreter.
// External programs named by the lines are still executed as child processes.
type VirtualShell struct {
	// Dir is the working directory of the session; empty means the current one.
	Dir string
}

// NewVirtualShell creates a VirtualShell working in dir.
func NewVirtualShell(dir string) *VirtualShell {
	return &VirtualShell{Dir: dir}
}

// Run parses the lines plus the exit instruction as one script and runs it,
// capturing stdout and stderr together. The script's exit status is not an error.
func (v *VirtualShell) Run(ctx context.Context, lines []string) (string, error) {
	var script strings.Builder
	for _, line := range lines {
		script.WriteString(line)
		script.WriteByte('\n')
	}

	script.WriteString(exitInstruction)
	script.WriteByte('\n')

	prog, err := syntax.NewParser().Parse(strings.NewReader(script.String()), "session")
	if err != nil {
		return "", fmt.Errorf("parse command lines: %w", err)
	}

	var output bytes.Buffer

	opts := []interp.RunnerOption{
		interp.StdIO(nil, &output, &output),
	}

	if v.Dir != "" {
		opts = append(opts, interp.Dir(v.Dir))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrShellUnavailable, err)
	}

	if err = runner.Run(ctx, prog); err != nil {
		var status interp.ExitStatus
		if !errors.As(err, &status) {
			return output.String(), fmt.Errorf("run command lines: %w", err)
		}
	}

	logger.DebugKV(ctx, "Virtual session finished", "output", output.String())

	return output.String(), nil
}
