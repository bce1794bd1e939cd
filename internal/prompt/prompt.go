package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var (
	// ErrNotInteractive is returned when input is not a terminal and prompting would block.
	ErrNotInteractive = errors.New("standard input is not a terminal")
	// ErrEmptyAnswer is returned when the operator entered nothing.
	ErrEmptyAnswer = errors.New("no folder name entered")
)

// Prompter asks the operator for a value on the console.
type Prompter struct {
	in          io.Reader
	out         io.Writer
	interactive func() bool
}

// New creates a Prompter reading from in and writing questions to out.
// in is treated as interactive unless it is a file that is not a terminal.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:          in,
		out:         out,
		interactive: func() bool { return isTerminal(in) },
	}
}

// Stdio creates a Prompter on the process's standard streams.
func Stdio() *Prompter {
	return New(os.Stdin, os.Stdout)
}

// Ask prints question and returns the trimmed answer line.
// It returns ctx.Err() as soon as ctx is done, even while waiting for input.
func (p *Prompter) Ask(ctx context.Context, question string) (string, error) {
	if !p.interactive() {
		return "", ErrNotInteractive
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if _, err := fmt.Fprint(p.out, question); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}

	type reply struct {
		answer string
		err    error
	}

	// The read cannot be interrupted; on cancellation it is abandoned.
	replies := make(chan reply, 1)

	go func() {
		answer, err := bufio.NewReader(p.in).ReadString('\n')
		replies <- reply{answer: answer, err: err}
	}()

	var r reply

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r = <-replies:
	}

	if r.err != nil && !errors.Is(r.err, io.EOF) {
		return "", fmt.Errorf("read answer: %w", r.err)
	}

	answer := strings.TrimSpace(r.answer)
	if answer == "" {
		return "", ErrEmptyAnswer
	}

	return answer, nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return true
	}

	return term.IsTerminal(int(f.Fd())) //nolint:gosec // File descriptors fit in int.
}
