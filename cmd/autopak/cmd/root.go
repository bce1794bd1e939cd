package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/autopak/internal/logger"
	"github.com/oshokin/autopak/internal/prompt"
	"github.com/oshokin/autopak/internal/service/autopak"
	"github.com/oshokin/autopak/internal/version"
)

var (
	// configPath to the configuration YAML file; empty means the executable directory's settings.
	configPath string
	// packerPath overrides the configured packer location.
	packerPath string
	// linkMode overrides the configured link mode.
	linkMode string
	// logLevel overrides the configured log level.
	logLevel string

	// rootCmd stages a folder, packs it and reverts the staging.
	rootCmd = &cobra.Command{
		Use:          "autopak [source-folder]",
		Short:        "Pack a folder with UnrealPak through a temporary staging link",
		Long:         "Lists every file of the source folder in a manifest, links the folder next to the executable, runs UnrealPak on the manifest and removes the link and the manifest afterwards. Without a folder argument the folder name is asked for interactively.",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			// Signals cancel the folder prompt. A running packer is never interrupted,
			// so the run still unwinds through its cleanup.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &autopak.Options{
				ConfigPath: configPath,
				PackerPath: packerPath,
				LinkMode:   linkMode,
				LogLevel:   logLevel,
				Prompter:   prompt.Stdio(),
			}

			if len(args) > 0 {
				options.SourceDir = args[0]
			}

			if err := autopak.Run(ctx, options); err != nil {
				logger.ErrorKV(ctx, "Packaging failed", "error", err)
				return err
			}

			return nil
		},
	}
)

// Execute runs the autopak CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	attachConfigCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (default: autopak-settings.yaml next to the executable)")
	rootCmd.Flags().StringVarP(&packerPath, "packer", "p", "", "path to the packer, absolute or relative to the executable directory")
	rootCmd.Flags().StringVar(&linkMode, "link-mode", "", "staging link management: native or shell")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "minimum log level: debug, info, warn, error")
}
