package autopak

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/oshokin/autopak/internal/config"
	"github.com/oshokin/autopak/internal/executor"
	"github.com/oshokin/autopak/internal/logger"
	"github.com/oshokin/autopak/internal/manifest"
	"github.com/oshokin/autopak/internal/packer"
	"github.com/oshokin/autopak/internal/stager"
)

// sourceQuestion is printed when the source folder was not given.
const sourceQuestion = "Enter the folder name: "

var (
	// ErrNoSource is returned when neither an argument nor a prompter supplies the source folder.
	ErrNoSource = errors.New("source folder not specified")
	// ErrLinkPathOccupied is returned when the staging link path holds something this run cannot reclaim.
	ErrLinkPathOccupied = errors.New("staging link path is occupied")
	// ErrRunInProgress is returned when another packaging run is using the staging link.
	ErrRunInProgress = errors.New("another packaging run is in progress")
)

// SourcePrompter asks the operator for the source folder.
type SourcePrompter interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Options are inputs accepted by the packaging entry point.
type Options struct {
	// ConfigPath is an optional settings file; defaults to the executable directory's settings.
	ConfigPath string
	// SourceDir is the folder to package, absolute or relative to the executable directory.
	SourceDir string
	// Prompter is asked for the folder when SourceDir is empty.
	Prompter SourcePrompter
	// ExecutableDir overrides the directory of the running executable (staging root).
	ExecutableDir string
	// PackerPath overrides the configured packer location.
	PackerPath string
	// LinkMode overrides the configured link mode.
	LinkMode string
	// LogLevel overrides the configured log level.
	LogLevel string
	// PackerStdout and PackerStderr receive the packer output; nil means the process streams.
	PackerStdout io.Writer
	PackerStderr io.Writer
}

// runner holds the resolved inputs of one packaging run.
// It is unexported; callers use Run.
type runner struct {
	cfg           *config.Config
	executableDir string
	source        string
	link          string
	packerBinary  string
	builder       *manifest.Builder
	linker        stager.Linker
	guard         *runGuard
	invoke        func(ctx context.Context, inv *packer.Invocation) error
	stdout        io.Writer
	stderr        io.Writer
}

// Run stages the source folder, invokes the packer and reverts the staging.
//
// Once the manifest is written it is always deleted, and once the staging link
// is created it is always removed, whatever happens in between.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "autopak")

	r, err := newRunner(ctx, opts)
	if err != nil {
		return err
	}

	if err = r.run(ctx); err != nil {
		return err
	}

	enter(ctx, stateDone)
	logger.InfoKV(ctx, "Packaging completed", "archive", packer.ArchivePath(r.source))

	return nil
}

// newRunner performs the Init state: settings, staging root and source folder.
func newRunner(ctx context.Context, opts *Options) (*runner, error) {
	enter(ctx, stateInit)

	exeDir := opts.ExecutableDir
	if exeDir == "" {
		var err error

		exeDir, err = ExecutableDir()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := loadConfig(exeDir, opts)
	if err != nil {
		return nil, err
	}

	source, err := resolveSource(ctx, exeDir, opts.SourceDir, opts.Prompter)
	if err != nil {
		return nil, err
	}

	packerBinary := cfg.PackerPath
	if !filepath.IsAbs(packerBinary) {
		packerBinary = filepath.Join(exeDir, packerBinary)
	}

	r := &runner{
		cfg:           cfg,
		executableDir: exeDir,
		source:        source,
		link:          filepath.Join(exeDir, filepath.Base(source)),
		packerBinary:  packerBinary,
		builder: &manifest.Builder{
			Filename:    cfg.ManifestFilename,
			AscentDepth: cfg.AscentDepth,
		},
		linker: newLinker(cfg, exeDir),
		guard:  newRunGuard(filepath.Base(packerBinary)),
		invoke: packer.Invoke,
		stdout: opts.PackerStdout,
		stderr: opts.PackerStderr,
	}

	if r.stdout == nil {
		r.stdout = os.Stdout
	}

	if r.stderr == nil {
		r.stderr = os.Stderr
	}

	logger.DebugKV(ctx, "Run prepared",
		"executable_dir", exeDir, "source", source, "link", r.link, "packer", packerBinary, "link_mode", cfg.LinkMode)

	return r, nil
}

// run walks Validate, Enumerate, Stage, Pack and Unstage.
func (r *runner) run(ctx context.Context) (err error) {
	enter(ctx, stateValidate)

	if err = manifest.CheckSource(r.source); err != nil {
		enter(ctx, stateAbort)
		logger.ErrorKV(ctx, "Folder does not exist", "folder", r.source, "error", err)

		return err
	}

	enter(ctx, stateEnumerate)

	// A failed write leaves no manifest of ours behind.
	written, err := r.builder.BuildAndWrite(r.source)
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	defer func() {
		err = errors.Join(err, removeManifest(ctx, written.Path))
	}()

	logger.InfoKV(ctx, "Found files", "count", len(written.Entries), "manifest", written.Path)

	for _, entry := range written.Entries {
		logger.Info(ctx, entry.RelativePath)
	}

	enter(ctx, stateStage)

	staged, err := r.stage(ctx)
	if staged {
		defer func() {
			enter(ctx, stateUnstage)

			err = errors.Join(err, r.unstage(ctx))
		}()
	}

	if err != nil {
		return err
	}

	enter(ctx, statePack)

	return r.pack(ctx, written.Path)
}

// stage creates the staging link, reclaiming a stale link left by an interrupted run.
// It reports whether a link now exists that the run must remove.
// A source folder already at the link path is packed in place.
func (r *runner) stage(ctx context.Context) (bool, error) {
	if isSourceFolder(r.link, r.source) {
		logger.InfoKV(ctx, "Source folder is already in place, staging skipped", "folder", r.source)
		return false, nil
	}

	state, err := stager.Inspect(r.link)
	if err != nil {
		return false, err
	}

	switch state.Kind {
	case stager.KindMissing:
	case stager.KindSymlink:
		if running := r.guard.PackerRunning(ctx); running {
			return false, fmt.Errorf("%s: %w", r.link, ErrRunInProgress)
		}

		if !state.PointsAt(r.source) {
			return false, fmt.Errorf("%s links to %s: %w", r.link, state.Target, ErrLinkPathOccupied)
		}

		logger.WarnKV(ctx, "Removing stale staging link", "link", r.link)

		if err = r.linker.RemoveLink(ctx, r.link); err != nil {
			return false, fmt.Errorf("remove stale staging link: %w", err)
		}
	default:
		return false, fmt.Errorf("%s: %w", r.link, ErrLinkPathOccupied)
	}

	logger.InfoKV(ctx, "Creating staging link", "link", r.link, "target", r.source)

	if err = r.linker.CreateLink(ctx, r.link, r.source); err != nil {
		if errors.Is(err, stager.ErrInnerCommandFailed) {
			logger.ErrorKV(ctx, "Link command reported failure", "error", err)
		}

		// The command may have failed after creating the link.
		after, inspectErr := stager.Inspect(r.link)

		return inspectErr == nil && after.PointsAt(r.source), fmt.Errorf("create staging link: %w", err)
	}

	return true, nil
}

// pack invokes the packer. A missing packer is reported and left to the caller.
func (r *runner) pack(ctx context.Context, manifestPath string) error {
	err := r.invoke(ctx, &packer.Invocation{
		Binary: r.packerBinary,
		Args:   packer.Arguments(r.source, manifestPath, r.cfg.PackerArgs),
		Dir:    filepath.Dir(r.packerBinary),
		Stdout: r.stdout,
		Stderr: r.stderr,
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, packer.ErrPackerNotFound):
		logger.ErrorKV(ctx, "Unable to find the packer", "packer", r.packerBinary, "error", err)
	default:
		logger.ErrorKV(ctx, "Packer run failed", "error", err)
	}

	return err
}

// isSourceFolder reports whether link is the source folder itself rather than
// a link to it.
func isSourceFolder(link, source string) bool {
	if filepath.Clean(link) == filepath.Clean(source) {
		return true
	}

	linkInfo, err := os.Lstat(link)
	if err != nil || linkInfo.Mode()&fs.ModeSymlink != 0 {
		return false
	}

	sourceInfo, err := os.Stat(source)
	if err != nil {
		return false
	}

	return os.SameFile(linkInfo, sourceInfo)
}

// unstage removes the staging link.
func (r *runner) unstage(ctx context.Context) error {
	logger.InfoKV(ctx, "Removing staging link", "link", r.link)

	if err := r.linker.RemoveLink(ctx, r.link); err != nil {
		logger.ErrorKV(ctx, "Unable to remove staging link", "link", r.link, "error", err)
		return fmt.Errorf("remove staging link: %w", err)
	}

	return nil
}

// removeManifest deletes the manifest; a manifest that is already gone is fine.
func removeManifest(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.ErrorKV(ctx, "Unable to remove manifest", "manifest", path, "error", err)
		return fmt.Errorf("remove manifest: %w", err)
	}

	logger.DebugKV(ctx, "Manifest removed", "manifest", path)

	return nil
}

// loadConfig reads settings and applies option overrides.
func loadConfig(exeDir string, opts *Options) (*config.Config, error) {
	path, optional := opts.ConfigPath, false
	if path == "" {
		path, optional = filepath.Join(exeDir, config.DefaultConfigFilename), true
	}

	cfg, err := config.Load(path, optional)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if opts.PackerPath != "" {
		cfg.PackerPath = opts.PackerPath
	}

	if opts.LinkMode != "" {
		cfg.LinkMode = opts.LinkMode
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	return cfg, nil
}

// resolveSource returns the absolute source folder from the argument or the prompter.
func resolveSource(ctx context.Context, exeDir, arg string, prompter SourcePrompter) (string, error) {
	if arg == "" {
		if prompter == nil {
			return "", ErrNoSource
		}

		answer, err := prompter.Ask(ctx, sourceQuestion)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrNoSource, err)
		}

		arg = answer
	}

	if !filepath.IsAbs(arg) {
		arg = filepath.Join(exeDir, arg)
	}

	return filepath.Clean(arg), nil
}

// ExecutableDir returns the directory of the running binary with symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}

	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	return filepath.Dir(exe), nil
}

// newLinker picks the staging link implementation for the configured mode.
//
//nolint:ireturn // Callers only need the Linker behavior.
func newLinker(cfg *config.Config, workDir string) stager.Linker {
	if cfg.LinkMode != config.LinkModeShell {
		return stager.NewNativeLinker()
	}

	virtual := cfg.Shell == config.ShellVirtual

	var exec executor.Executor = executor.NewSystemShell(cfg.ShellPath)
	if virtual {
		exec = executor.NewVirtualShell(workDir)
	}

	return stager.NewShellLinker(exec, stager.DialectFor(runtime.GOOS, virtual))
}
