package pathutil

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestResolve_Filesystem covers directory-relative resolution of local paths.
func TestResolve_Filesystem(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("cases use POSIX paths")
	}

	cases := []struct {
		name   string
		base   string
		target string
		want   string
	}{
		{"child file", "/mods", "/mods/Content/a.txt", "Content/a.txt"},
		{"trailing separator", "/mods/", "/mods/Content/a.txt", "Content/a.txt"},
		{"sibling tree", "/mods/Content", "/mods/Other/b.txt", "../Other/b.txt"},
		{"two levels up", "/a/b/c", "/a/x.txt", "../../x.txt"},
		{"shared name prefix", "/a/bc", "/a/b/x", "../b/x"},
		{"spaces", "/my mods", "/my mods/New Folder/a b.txt", "New Folder/a b.txt"},
		{"percent literal", "/m", "/m/100%25/%41.txt", "100%25/%41.txt"},
		{"reserved characters", "/m", "/m/a;b,c?d.txt", "a;b,c?d.txt"},
		{"from root", "/", "/etc/hosts", "etc/hosts"},
		{"unclean input", "/a/./b/", "/a/b/../b/c.txt", "c.txt"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Resolve(tc.base, tc.target))
		})
	}
}

// TestResolve_JoinsBackToTarget checks that joining the result onto base yields target.
func TestResolve_JoinsBackToTarget(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	pairs := [][2]string{
		{filepath.Join(root, "a"), filepath.Join(root, "a", "b", "c.txt")},
		{filepath.Join(root, "a", "b"), filepath.Join(root, "x", "y", "z.txt")},
		{filepath.Join(root, "deep", "er", "est"), filepath.Join(root, "d.txt")},
		{filepath.Join(root, "with space"), filepath.Join(root, "with space", "50% off.txt")},
	}

	for _, pair := range pairs {
		rel := Resolve(pair[0], pair[1])
		require.False(t, filepath.IsAbs(rel), rel)
		require.Equal(t, filepath.Clean(pair[1]), filepath.Join(pair[0], rel))
	}
}

// TestResolve_CrossScheme returns the target untouched when no relative form exists.
func TestResolve_CrossScheme(t *testing.T) {
	t.Parallel()

	require.Equal(t, "https://cdn.example.com/paks/a.pak", Resolve(filepath.Join(t.TempDir(), "x"), "https://cdn.example.com/paks/a.pak"))
	require.Equal(t, "ftp://host/a", Resolve("https://host/", "ftp://host/a"))
	require.Equal(t, "https://other.example.com/a", Resolve("https://cdn.example.com/", "https://other.example.com/a"))
	require.Equal(t, "relative/path", Resolve("/abs", "relative/path"))
	require.Equal(t, "/abs", Resolve("", "/abs"))
}

// TestResolve_URL resolves URLs on the same host with locator semantics.
func TestResolve_URL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "c/d.pak", Resolve("https://host/a/b/", "https://host/a/b/c/d.pak"))
	// Without a trailing slash the last URL segment is a file.
	require.Equal(t, "c/d.pak", Resolve("https://host/a/b/index.html", "https://host/a/b/c/d.pak"))
	require.Equal(t, "../x y.pak?v=1", Resolve("https://host/a/b/", "https://host/a/x%20y.pak?v=1"))
}

// TestResolve_Deterministic returns identical output for identical input.
func TestResolve_Deterministic(t *testing.T) {
	t.Parallel()

	base, target := filepath.Join(t.TempDir(), "p"), filepath.Join(t.TempDir(), "q", "r.txt")
	require.Equal(t, Resolve(base, target), Resolve(base, target))
}
