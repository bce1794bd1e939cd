package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/autopak/internal/config"
	"github.com/oshokin/autopak/internal/pathutil"
)

// ascentStep is one parent-directory step of the manifest line prefix.
const ascentStep = "../"

var (
	// ErrSourceNotFound is returned when the source directory does not exist.
	ErrSourceNotFound = errors.New("source folder does not exist")
	// ErrSourceNotDirectory is returned when the source path is not a directory.
	ErrSourceNotDirectory = errors.New("source path is not a folder")
)

// Entry describes one file of the source tree.
type Entry struct {
	// AbsolutePath is the file location on disk.
	AbsolutePath string
	// RelativePath is the forward-slash path relative to the parent of the source folder.
	RelativePath string
	// Line is RelativePath with the ascent prefix, as written to the manifest.
	Line string
}

// Manifest is a written file list.
type Manifest struct {
	// Path is where the manifest was written.
	Path string
	// Entries are the files listed in the manifest, in enumeration order.
	Entries []Entry
}

// Builder enumerates source trees into manifest entries.
type Builder struct {
	// Filename is the manifest file name written next to the source folder.
	Filename string
	// AscentDepth is the number of "../" steps prefixed to every line.
	AscentDepth int
}

// NewBuilder creates a Builder with the default file name and depth.
func NewBuilder() *Builder {
	return &Builder{
		Filename:    config.DefaultManifestFilename,
		AscentDepth: config.DefaultAscentDepth,
	}
}

// Prefix returns the ascent prefix written before every relative path.
func (b *Builder) Prefix() string {
	return strings.Repeat(ascentStep, b.AscentDepth)
}

// PathFor returns the manifest location for sourceDir: a sibling of the folder.
func (b *Builder) PathFor(sourceDir string) string {
	return filepath.Join(filepath.Dir(filepath.Clean(sourceDir)), b.Filename)
}

// CheckSource verifies that sourceDir exists and is a directory.
func CheckSource(sourceDir string) error {
	info, err := os.Stat(sourceDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", sourceDir, ErrSourceNotFound)
		}

		return fmt.Errorf("stat %s: %w", sourceDir, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%s: %w", sourceDir, ErrSourceNotDirectory)
	}

	return nil
}

// Build enumerates every file under sourceDir, recursively, in lexical walk order.
func (b *Builder) Build(sourceDir string) ([]Entry, error) {
	sourceDir = filepath.Clean(sourceDir)
	if err := CheckSource(sourceDir); err != nil {
		return nil, err
	}

	var (
		parent  = filepath.Dir(sourceDir)
		prefix  = b.Prefix()
		entries []Entry
	)

	err := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		relative := filepath.ToSlash(pathutil.Resolve(parent, path))
		entries = append(entries, Entry{
			AbsolutePath: path,
			RelativePath: relative,
			Line:         prefix + relative,
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", sourceDir, err)
	}

	return entries, nil
}

// Write persists entries as newline-terminated lines at path, replacing any
// existing file. It returns the number of lines written. A file that was opened
// but could not be fully written is removed; a path that could not be opened is
// left as it was.
func Write(path string, entries []Entry) (int, error) {
	path = filepath.Clean(path)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, config.DefaultFilePermissions)
	if err != nil {
		return 0, fmt.Errorf("create manifest: %w", err)
	}

	written, err := writeLines(file, entries)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close manifest: %w", closeErr)
	}

	if err != nil {
		_ = os.Remove(path)
		return written, err
	}

	return written, nil
}

func writeLines(w io.Writer, entries []Entry) (int, error) {
	writer := bufio.NewWriter(w)

	written := 0
	for _, entry := range entries {
		if _, err := writer.WriteString(entry.Line + "\n"); err != nil {
			return written, fmt.Errorf("write manifest: %w", err)
		}

		written++
	}

	if err := writer.Flush(); err != nil {
		return written, fmt.Errorf("flush manifest: %w", err)
	}

	return written, nil
}

// BuildAndWrite enumerates sourceDir and writes the manifest next to it.
// On error no manifest written by this call remains on disk.
func (b *Builder) BuildAndWrite(sourceDir string) (*Manifest, error) {
	entries, err := b.Build(sourceDir)
	if err != nil {
		return nil, err
	}

	path := b.PathFor(sourceDir)
	if _, err = Write(path, entries); err != nil {
		return nil, err
	}

	return &Manifest{
		Path:    path,
		Entries: entries,
	}, nil
}
