package stager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	// ErrLinkExists is returned when the link path is already occupied.
	ErrLinkExists = errors.New("link path already exists")
	// ErrLinkMissing is returned when removing a link that does not exist.
	ErrLinkMissing = errors.New("link does not exist")
	// ErrNotLink is returned when the path to remove is not a symbolic link.
	ErrNotLink = errors.New("path is not a symbolic link")
	// ErrLinkPermission is returned when the account may not create symbolic links.
	ErrLinkPermission = errors.New("not permitted to create symbolic links")
)

// Linker creates and removes the staging link.
type Linker interface {
	// CreateLink makes link a symbolic link to the directory target.
	CreateLink(ctx context.Context, link, target string) error
	// RemoveLink removes the symbolic link itself, never the tree it points at.
	RemoveLink(ctx context.Context, link string) error
}

// Kind classifies what currently occupies a link path.
type Kind int

const (
	// KindMissing means nothing exists at the path.
	KindMissing Kind = iota
	// KindSymlink means the path is a symbolic link.
	KindSymlink
	// KindOther means the path is a regular file or directory.
	KindOther
)

// State describes the link path on disk.
type State struct {
	// Kind is what occupies the path.
	Kind Kind
	// Target is the link destination, set for KindSymlink.
	Target string
}

// Inspect reports what occupies path without following a symbolic link.
func Inspect(path string) (State, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return State{Kind: KindMissing}, nil
		}

		return State{}, fmt.Errorf("inspect %s: %w", path, err)
	}

	if info.Mode()&fs.ModeSymlink == 0 {
		return State{Kind: KindOther}, nil
	}

	target, err := os.Readlink(path)
	if err != nil {
		return State{}, fmt.Errorf("read link %s: %w", path, err)
	}

	return State{Kind: KindSymlink, Target: target}, nil
}

// PointsAt reports whether the link state resolves to dir.
func (s State) PointsAt(dir string) bool {
	if s.Kind != KindSymlink {
		return false
	}

	return filepath.Clean(s.Target) == filepath.Clean(dir)
}

// NativeLinker manages the staging link with direct filesystem calls.
type NativeLinker struct{}

// NewNativeLinker creates a NativeLinker.
func NewNativeLinker() *NativeLinker {
	return &NativeLinker{}
}

// CreateLink creates link pointing at target. An occupied link path is ErrLinkExists.
func (*NativeLinker) CreateLink(_ context.Context, link, target string) error {
	if err := ensureAbsent(link); err != nil {
		return err
	}

	if err := os.Symlink(target, link); err != nil {
		if isPermissionError(err) {
			return fmt.Errorf("%s: %w: %w", link, ErrLinkPermission, err)
		}

		return fmt.Errorf("create link %s: %w", link, err)
	}

	return nil
}

// RemoveLink deletes link after checking that it is a symbolic link.
func (*NativeLinker) RemoveLink(_ context.Context, link string) error {
	if err := ensureLink(link); err != nil {
		return err
	}

	if err := os.Remove(link); err != nil {
		return fmt.Errorf("remove link %s: %w", link, err)
	}

	return nil
}

func ensureAbsent(link string) error {
	state, err := Inspect(link)
	if err != nil {
		return err
	}

	if state.Kind != KindMissing {
		return fmt.Errorf("%s: %w", link, ErrLinkExists)
	}

	return nil
}

func ensureLink(link string) error {
	state, err := Inspect(link)
	if err != nil {
		return err
	}

	switch state.Kind {
	case KindMissing:
		return fmt.Errorf("%s: %w", link, ErrLinkMissing)
	case KindOther:
		return fmt.Errorf("%s: %w", link, ErrNotLink)
	default:
		return nil
	}
}
