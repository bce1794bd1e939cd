package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/autopak/internal/config"
)

// newTestRoot builds a root command carrying only the config subcommand.
func newTestRoot(out *bytes.Buffer) *cobra.Command {
	root := &cobra.Command{Use: "autopak", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "")
	attachConfigCommand(root)
	root.SetOut(out)

	return root
}

// TestConfigInit writes the default settings and refuses to overwrite without --force.
func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.DefaultConfigFilename)

	var out bytes.Buffer

	root := newTestRoot(&out)
	root.SetArgs([]string{"config", "init", "--config", path})
	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), path)

	cfg, err := config.Load(path, false)
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)

	root = newTestRoot(&out)
	root.SetArgs([]string{"config", "init", "--config", path})
	require.ErrorIs(t, root.Execute(), errConfigExists)

	root = newTestRoot(&out)
	root.SetArgs([]string{"config", "init", "--config", path, "--force"})
	require.NoError(t, root.Execute())
}
