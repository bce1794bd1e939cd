package stager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/autopak/internal/executor"
)

// newSource creates a folder with one file and returns its path.
func newSource(t *testing.T) string {
	t.Helper()

	source := filepath.Join(t.TempDir(), "Mod")
	require.NoError(t, os.MkdirAll(filepath.Join(source, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(source, "sub", "a.txt"), []byte("a"), 0o600))

	return source
}

// trySymlink skips the test where the account may not create symbolic links.
func trySymlink(t *testing.T) {
	t.Helper()

	dir := t.TempDir()
	if err := os.Symlink(dir, filepath.Join(dir, "probe")); err != nil {
		t.Skipf("symbolic links unavailable: %v", err)
	}
}

// TestNativeLinker_CreateRemove aliases a folder and removes only the alias.
func TestNativeLinker_CreateRemove(t *testing.T) {
	t.Parallel()
	trySymlink(t)

	ctx := context.Background()
	source := newSource(t)
	link := filepath.Join(t.TempDir(), "Mod")

	linker := NewNativeLinker()
	require.NoError(t, linker.CreateLink(ctx, link, source))

	state, err := Inspect(link)
	require.NoError(t, err)
	require.Equal(t, KindSymlink, state.Kind)
	require.True(t, state.PointsAt(source))
	require.FileExists(t, filepath.Join(link, "sub", "a.txt"))

	require.NoError(t, linker.RemoveLink(ctx, link))

	state, err = Inspect(link)
	require.NoError(t, err)
	require.Equal(t, KindMissing, state.Kind)

	// Target contents survive link removal.
	require.FileExists(t, filepath.Join(source, "sub", "a.txt"))
}

// TestNativeLinker_Collisions detects occupied and missing link paths.
func TestNativeLinker_Collisions(t *testing.T) {
	t.Parallel()
	trySymlink(t)

	ctx := context.Background()
	source := newSource(t)
	link := filepath.Join(t.TempDir(), "Mod")
	linker := NewNativeLinker()

	require.NoError(t, linker.CreateLink(ctx, link, source))
	require.ErrorIs(t, linker.CreateLink(ctx, link, source), ErrLinkExists)
	require.NoError(t, linker.RemoveLink(ctx, link))
	require.ErrorIs(t, linker.RemoveLink(ctx, link), ErrLinkMissing)

	// A real directory is never removed.
	require.ErrorIs(t, linker.RemoveLink(ctx, source), ErrNotLink)
	require.DirExists(t, source)
	require.ErrorIs(t, linker.CreateLink(ctx, source, t.TempDir()), ErrLinkExists)
}

// fakeExecutor returns canned output and records the lines it was given.
type fakeExecutor struct {
	output string
	err    error
	lines  [][]string
}

func (f *fakeExecutor) Run(_ context.Context, lines []string) (string, error) {
	f.lines = append(f.lines, lines)
	return f.output, f.err
}

// TestShellLinker_StatusParsing maps the reported status onto errors.
func TestShellLinker_StatusParsing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	link := "/nonexistent-autopak-root/Mod"

	// Success.
	fake := &fakeExecutor{output: "autopak-status:0\n"}
	require.NoError(t, NewShellLinker(fake, PosixDialect()).CreateLink(ctx, link, "/src"))
	require.Len(t, fake.lines, 1)
	require.Equal(t, []string{`ln -sn -- /src ` + link, `echo "autopak-status:$?"`}, fake.lines[0])

	// Inner failure.
	fake = &fakeExecutor{output: "ln: cannot create link\nautopak-status:1\n"}
	err := NewShellLinker(fake, PosixDialect()).CreateLink(ctx, link, "/src")
	require.ErrorIs(t, err, ErrInnerCommandFailed)

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	require.Equal(t, 1, cmdErr.Status)
	require.Contains(t, cmdErr.Output, "cannot create link")

	// No status line at all.
	fake = &fakeExecutor{output: "garbage"}
	err = NewShellLinker(fake, PosixDialect()).CreateLink(ctx, link, "/src")
	require.ErrorIs(t, err, ErrInnerCommandFailed)

	// Interpreter missing propagates as is.
	fake = &fakeExecutor{err: executor.ErrShellUnavailable}
	err = NewShellLinker(fake, PosixDialect()).CreateLink(ctx, link, "/src")
	require.ErrorIs(t, err, executor.ErrShellUnavailable)
	require.NotErrorIs(t, err, ErrInnerCommandFailed)
}

// TestParseStatus ignores echoed command lines carrying unexpanded variables.
func TestParseStatus(t *testing.T) {
	t.Parallel()

	output := "C:\\tools>mklink /D \"a\" \"b\"\r\n" +
		"symbolic link created for a <<===>> b\r\n" +
		"C:\\tools>echo autopak-status:%ERRORLEVEL%\r\n" +
		"autopak-status:0\r\n" +
		"C:\\tools>exit\r\n"

	status, err := parseStatus(output)
	require.NoError(t, err)
	require.Zero(t, status)

	_, err = parseStatus("C:\\tools>echo autopak-status:%ERRORLEVEL%\r\n")
	require.ErrorIs(t, err, errNoStatus)
}

// TestDialectFor picks POSIX commands for the in-process interpreter everywhere.
func TestDialectFor(t *testing.T) {
	t.Parallel()

	win, err := DialectFor("windows", false).Create(`C:\a`, `D:\b`)
	require.NoError(t, err)
	require.Equal(t, `mklink /D "C:\a" "D:\b"`, win)

	posix, err := DialectFor("windows", true).Remove("/tmp/it's here")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(posix, "rm -- "), posix)

	// The quoted word survives a round trip through the interpreter.
	out, err := executor.NewVirtualShell("").Run(context.Background(), []string{
		"printf %s " + strings.TrimPrefix(posix, "rm -- "),
	})
	require.NoError(t, err)
	require.Equal(t, "/tmp/it's here", out)
}

// TestShellLinker_VirtualShell creates and removes a real link through the in-process interpreter.
func TestShellLinker_VirtualShell(t *testing.T) {
	t.Parallel()
	trySymlink(t)

	if runtime.GOOS == "windows" {
		t.Skip("ln and rm are not available")
	}

	ctx := context.Background()
	source := newSource(t)
	link := filepath.Join(t.TempDir(), "Mod with space")

	linker := NewShellLinker(executor.NewVirtualShell(""), PosixDialect())
	require.NoError(t, linker.CreateLink(ctx, link, source))
	require.FileExists(t, filepath.Join(link, "sub", "a.txt"))

	require.NoError(t, linker.RemoveLink(ctx, link))
	require.NoFileExists(t, link)
	require.FileExists(t, filepath.Join(source, "sub", "a.txt"))
}

// TestShellLinker_SystemShell creates and removes a real link through /bin/sh.
func TestShellLinker_SystemShell(t *testing.T) {
	t.Parallel()
	trySymlink(t)

	if runtime.GOOS == "windows" {
		t.Skip("mklink needs elevated privileges or developer mode")
	}

	ctx := context.Background()
	source := newSource(t)
	link := filepath.Join(t.TempDir(), "Mod")

	linker := NewShellLinker(executor.NewSystemShell(""), DialectFor(runtime.GOOS, false))
	require.NoError(t, linker.CreateLink(ctx, link, source))

	state, err := Inspect(link)
	require.NoError(t, err)
	require.True(t, state.PointsAt(source))

	require.NoError(t, linker.RemoveLink(ctx, link))
	require.DirExists(t, source)
}

// TestWindowsDialect_RejectsExpandablePaths refuses paths cmd.exe would rewrite.
func TestWindowsDialect_RejectsExpandablePaths(t *testing.T) {
	t.Parallel()

	dialect := WindowsDialect()

	_, err := dialect.Create(`C:\mods\50%off`, `D:\src`)
	require.ErrorIs(t, err, ErrUnsupportedPath)

	_, err = dialect.Create(`C:\mods\Mod`, `D:\%USERPROFILE%\src`)
	require.ErrorIs(t, err, ErrUnsupportedPath)

	_, err = dialect.Remove(`C:\mods\%TEMP%`)
	require.ErrorIs(t, err, ErrUnsupportedPath)

	removal, err := dialect.Remove(`C:\mods\My Mod`)
	require.NoError(t, err)
	require.Equal(t, `rmdir "C:\mods\My Mod"`, removal)
}
