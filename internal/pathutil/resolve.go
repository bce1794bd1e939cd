package pathutil

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

// FileScheme is the scheme assigned to local filesystem paths.
const FileScheme = "file"

// locator is an absolute path or URL split into the parts relevant for resolution.
type locator struct {
	scheme    string
	authority string
	path      string // slash separated, always rooted
	suffix    string // query and fragment carried over to the result
}

// Resolve returns target expressed relative to the directory base.
//
// Both arguments are absolute filesystem paths or absolute URLs. When the schemes
// (or the hosts) differ no relative form exists and target is returned unchanged.
// A filesystem base without a trailing separator is treated as a directory.
// The result is percent-decoded and, for filesystem targets, uses the platform separator.
func Resolve(base, target string) string {
	from, ok := parseLocator(base)
	if !ok {
		return target
	}

	to, ok := parseLocator(target)
	if !ok {
		return target
	}

	if from.scheme != to.scheme || !sameAuthority(from, to) {
		return target
	}

	if from.scheme == FileScheme && !strings.HasSuffix(from.path, "/") {
		from.path += "/"
	}

	relative := relativePath(from.path, to.path, from.scheme == FileScheme) + to.suffix
	if decoded, err := url.PathUnescape(relative); err == nil {
		relative = decoded
	}

	if to.scheme == FileScheme {
		relative = strings.ReplaceAll(relative, "/", string(filepath.Separator))
	}

	return relative
}

// parseLocator recognizes filesystem paths first and falls back to URL parsing.
func parseLocator(s string) (locator, bool) {
	if s == "" {
		return locator{}, false
	}

	if p, authority, ok := filesystemPath(s); ok {
		return locator{scheme: FileScheme, authority: authority, path: p}, true
	}

	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return locator{}, false
	}

	loc := locator{
		scheme:    strings.ToLower(u.Scheme),
		authority: u.Host,
		path:      u.EscapedPath(),
	}

	if loc.path == "" {
		loc.path = "/"
	}

	if u.RawQuery != "" {
		loc.suffix = "?" + u.RawQuery
	}

	if u.Fragment != "" {
		loc.suffix += "#" + u.EscapedFragment()
	}

	// file:// URLs are normalized to the same escaping as plain paths.
	if loc.scheme == FileScheme {
		if unescaped, err := url.PathUnescape(loc.path); err == nil {
			loc.path = escapeSegments(unescaped)
		}
	}

	return loc, true
}

// filesystemPath converts an absolute local path into an escaped slash path.
// UNC paths report their server as the authority.
func filesystemPath(s string) (string, string, bool) {
	if !filepath.IsAbs(s) && !strings.HasPrefix(s, "/") {
		return "", "", false
	}

	s = filepath.Clean(s)

	slashed := s
	if runtime.GOOS == "windows" {
		slashed = strings.ReplaceAll(s, `\`, "/")
	}

	// UNC: //server/share/...
	if strings.HasPrefix(slashed, "//") && runtime.GOOS == "windows" {
		rest := slashed[2:]

		server, p, _ := strings.Cut(rest, "/")
		if server == "" {
			return "", "", false
		}

		return escapeSegments("/" + p), server, true
	}

	if volume := filepath.VolumeName(s); volume != "" {
		return escapeSegments("/" + slashed), "", true
	}

	if strings.HasPrefix(slashed, "/") {
		return escapeSegments(slashed), "", true
	}

	return "", "", false
}

// escapeSegments percent-encodes every segment of a slash path.
func escapeSegments(p string) string {
	segments := strings.Split(p, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}

	return strings.Join(segments, "/")
}

func sameAuthority(from, to locator) bool {
	if from.scheme == FileScheme || runtime.GOOS == "windows" {
		return strings.EqualFold(from.authority, to.authority)
	}

	return from.authority == to.authority
}

// relativePath finds the shortest path from the directory part of base to target.
// Both are rooted slash paths.
func relativePath(base, target string, filesystem bool) string {
	baseDir := base[:strings.LastIndex(base, "/")+1]

	// Length of the longest common prefix ending at a separator.
	common := 0
	for i := 0; i < len(baseDir) && i < len(target); i++ {
		if !sameByte(baseDir[i], target[i], filesystem) {
			break
		}

		if baseDir[i] == '/' {
			common = i + 1
		}
	}

	ascent := strings.Count(baseDir[common:], "/")

	var builder strings.Builder
	for range ascent {
		builder.WriteString("../")
	}

	builder.WriteString(target[common:])

	return builder.String()
}

// sameByte compares case-insensitively for Windows filesystem paths.
func sameByte(a, b byte, filesystem bool) bool {
	if a == b {
		return true
	}

	if !filesystem || runtime.GOOS != "windows" {
		return false
	}

	return lower(a) == lower(b)
}

func lower(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}

	return c
}
