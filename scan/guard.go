package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathEscape is returned when a client path resolves outside the root.
var ErrPathEscape = errors.New("path escapes root")

// ResolveWithinRoot resolves the client supplied rel against root and
// returns the absolute result, which is root itself or a descendant of it.
//
// Leading separators are stripped first so rel can never replace the root.
// The check is lexical only: a symlink inside root that points elsewhere
// is not detected. Use ResolveWithinRootStrict for that.
func ResolveWithinRoot(root, rel string) (string, error) {
	root = filepath.Clean(root)
	cleaned := strings.TrimLeft(rel, "/"+string(filepath.Separator))
	resolved := filepath.Join(root, filepath.FromSlash(cleaned))

	if !within(root, resolved) {
		return "", ErrPathEscape
	}
	return resolved, nil
}

// ResolveWithinRootStrict behaves like ResolveWithinRoot and additionally
// resolves symlinks of root and of the candidate, rejecting candidates
// whose real location lies outside the real root. For a candidate that
// does not exist yet, the nearest existing ancestor is resolved instead,
// so a missing path below a link that leaves the root is rejected too.
func ResolveWithinRootStrict(root, rel string) (string, error) {
	resolved, err := ResolveWithinRoot(root, rel)
	if err != nil {
		return "", err
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	realPath, err := realPathOf(resolved, maxLinkHops)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", rel, err)
	}
	if !within(realRoot, realPath) {
		return "", ErrPathEscape
	}
	return resolved, nil
}

// maxLinkHops bounds how many dangling links realPathOf follows by hand.
const maxLinkHops = 40

// realPathOf resolves the symlinks in the longest existing prefix of path
// and appends the missing tail unchanged. Dangling links along the way are
// followed to where they point.
func realPathOf(path string, hops int) (string, error) {
	var missing []string
	for {
		real, err := filepath.EvalSymlinks(path)
		if err == nil {
			return filepath.Join(append([]string{real}, missing...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}

		if info, lerr := os.Lstat(path); lerr == nil && info.Mode()&fs.ModeSymlink != 0 {
			if hops == 0 {
				return "", fmt.Errorf("too many links at %s", path)
			}
			target, err := os.Readlink(path)
			if err != nil {
				return "", err
			}
			if !filepath.IsAbs(target) {
				dir, err := filepath.EvalSymlinks(filepath.Dir(path))
				if err != nil {
					return "", err
				}
				target = filepath.Join(dir, target)
			}
			real, err := realPathOf(target, hops-1)
			if err != nil {
				return "", err
			}
			return filepath.Join(append([]string{real}, missing...)...), nil
		}

		parent := filepath.Dir(path)
		if parent == path {
			return "", err
		}
		missing = append([]string{filepath.Base(path)}, missing...)
		path = parent
	}
}

func within(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return false
	}
	return true
}

// Guard binds the path guard to one root. Strict selects
// ResolveWithinRootStrict.
type Guard struct {
	Root   string
	Strict bool
}

func (g Guard) Resolve(rel string) (string, error) {
	if g.Strict {
		return ResolveWithinRootStrict(g.Root, rel)
	}
	return ResolveWithinRoot(g.Root, rel)
}
