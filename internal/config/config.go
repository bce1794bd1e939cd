package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/autopak/internal/logger"
)

// Config holds settings for a packaging run.
type Config struct {
	// PackerPath locates the packer binary relative to the executable directory (or absolute).
	PackerPath string `yaml:"packer_path"`
	// PackerArgs are appended after the archive and manifest arguments.
	PackerArgs []string `yaml:"packer_args"`
	// ManifestFilename is the name of the manifest written next to the source folder.
	ManifestFilename string `yaml:"manifest_filename"`
	// AscentDepth is the number of "../" steps prefixed to every manifest line.
	AscentDepth int `yaml:"ascent_depth"`
	// LinkMode selects how the staging link is managed: native or shell.
	LinkMode string `yaml:"link_mode"`
	// Shell selects the command interpreter used by the shell link mode: system or virtual.
	Shell string `yaml:"shell"`
	// ShellPath overrides the system interpreter binary.
	ShellPath string `yaml:"shell_path,omitempty"`
	// LogLevel is the minimum level of emitted log messages.
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the settings file looked up in the executable directory.
	DefaultConfigFilename = "autopak-settings.yaml"

	// DefaultManifestFilename is the manifest name the packer is pointed at.
	DefaultManifestFilename = "packFiles.txt"

	// DefaultAscentDepth matches the packer's working directory three levels below the staging root.
	DefaultAscentDepth = 3

	// DefaultFilePermissions is the permission used for settings and manifest files.
	DefaultFilePermissions = 0o644

	// LinkModeNative manages the staging link with direct filesystem calls.
	LinkModeNative = "native"
	// LinkModeShell manages the staging link through a command interpreter session.
	LinkModeShell = "shell"

	// ShellSystem spawns the platform command interpreter.
	ShellSystem = "system"
	// ShellVirtual runs commands in an in-process POSIX interpreter.
	ShellVirtual = "virtual"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// ErrInvalidLinkMode is returned for an unknown link_mode value.
	ErrInvalidLinkMode = errors.New("invalid link mode")
	// ErrInvalidShell is returned for an unknown shell value.
	ErrInvalidShell = errors.New("invalid shell")
	// ErrInvalidAscentDepth is returned for a negative ascent_depth.
	ErrInvalidAscentDepth = errors.New("ascent depth must not be negative")
	// ErrInvalidLogLevel is returned for an unknown log_level value.
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// DefaultPackerPath is the packer location relative to the executable directory.
func DefaultPackerPath() string {
	return filepath.Join("UnrealPak", "2", "3", "UnrealPak.exe")
}

// Default returns a configuration populated with defaults.
func Default() *Config {
	return &Config{
		PackerPath:       DefaultPackerPath(),
		PackerArgs:       []string{"-compressd"},
		ManifestFilename: DefaultManifestFilename,
		AscentDepth:      DefaultAscentDepth,
		LinkMode:         LinkModeNative,
		Shell:            ShellSystem,
		LogLevel:         "info",
	}
}

// Load reads configuration from path. A missing file yields defaults when
// optional is true, so a fresh install works without a settings file.
func Load(path string, optional bool) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills empty fields with defaults and rejects unknown values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.PackerPath == "" {
		cfg.PackerPath = DefaultPackerPath()
	}

	if cfg.ManifestFilename == "" {
		cfg.ManifestFilename = DefaultManifestFilename
	}

	if cfg.AscentDepth < 0 {
		return fmt.Errorf("%d: %w", cfg.AscentDepth, ErrInvalidAscentDepth)
	}

	cfg.LinkMode = strings.ToLower(strings.TrimSpace(cfg.LinkMode))
	switch cfg.LinkMode {
	case "":
		cfg.LinkMode = LinkModeNative
	case LinkModeNative, LinkModeShell:
	default:
		return fmt.Errorf("%q: %w", cfg.LinkMode, ErrInvalidLinkMode)
	}

	cfg.Shell = strings.ToLower(strings.TrimSpace(cfg.Shell))
	switch cfg.Shell {
	case "":
		cfg.Shell = ShellSystem
	case ShellSystem, ShellVirtual:
	default:
		return fmt.Errorf("%q: %w", cfg.Shell, ErrInvalidShell)
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%q: %w", cfg.LogLevel, ErrInvalidLogLevel)
	}

	return nil
}
