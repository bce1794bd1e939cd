package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oshokin/autopak/internal/config"
	"github.com/oshokin/autopak/internal/service/autopak"
)

// errConfigExists is returned by `config init` when the file is present and --force is not set.
var errConfigExists = errors.New("settings file already exists")

// attachConfigCommand adds `config init`, which writes the default settings.
func attachConfigCommand(root *cobra.Command) {
	var force bool

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configPath
			if path == "" {
				exeDir, err := autopak.ExecutableDir()
				if err != nil {
					return err
				}

				path = filepath.Join(exeDir, config.DefaultConfigFilename)
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s: %w", path, errConfigExists)
			}

			if err := config.Save(path, config.Default()); err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)

			return nil
		},
	}

	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing settings file")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the settings file",
	}

	configCmd.AddCommand(initCmd)
	root.AddCommand(configCmd)
}
