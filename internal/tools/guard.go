package tools

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Confinement error kinds. Envelope text uses errors.Is against these.
var (
	ErrOutOfRoot   = errors.New("OutOfRoot")
	ErrBadArgument = errors.New("BadArgument")
)

// Guard confines all filesystem operations to a working root fixed at
// startup. Every tool path goes through Resolve.
type Guard struct {
	root        string // canonical absolute root
	caseFolding bool   // case-insensitive comparison (macOS/Windows)
}

// NewGuard canonicalizes root (absolute, symlinks resolved) and returns a
// guard for it. The root must exist.
func NewGuard(root string) (*Guard, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve working root: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve working root %s: %w", abs, err)
	}
	return &Guard{
		root:        real,
		caseFolding: runtime.GOOS == "darwin" || runtime.GOOS == "windows",
	}, nil
}

// Root returns the canonical working root.
func (g *Guard) Root() string { return g.root }

// Resolve canonicalizes input (absolute or root-relative) and fails with
// ErrOutOfRoot when the result is not the root or a descendant. Paths with
// embedded NUL or other characters the host forbids are rejected before any
// filesystem access.
func (g *Guard) Resolve(input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", fmt.Errorf("%w: empty path", ErrBadArgument)
	}
	if strings.ContainsRune(input, 0) {
		return "", fmt.Errorf("%w: path contains NUL", ErrBadArgument)
	}
	if runtime.GOOS == "windows" && strings.ContainsAny(input, `<>"|?*`) {
		return "", fmt.Errorf("%w: path contains forbidden characters", ErrBadArgument)
	}

	var resolved string
	if filepath.IsAbs(input) {
		resolved = filepath.Clean(input)
	} else {
		resolved = filepath.Clean(filepath.Join(g.root, input))
	}

	// Canonicalize through symlinks. For paths that do not exist yet,
	// canonicalize the deepest existing ancestor and re-append the rest,
	// so a symlinked component cannot smuggle the path outside the root.
	real, err := filepath.EvalSymlinks(resolved)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("%w: cannot resolve %s", ErrOutOfRoot, input)
		}
		real, err = resolveThroughExistingAncestors(resolved)
		if err != nil {
			return "", fmt.Errorf("%w: cannot resolve %s", ErrOutOfRoot, input)
		}
	}

	if !g.inside(real) {
		slog.Warn("security.path_escape", "path", input, "resolved", real, "root", g.root)
		return "", fmt.Errorf("%w: %s is outside the working root", ErrOutOfRoot, input)
	}
	return real, nil
}

// inside checks whether child is the root or a descendant of it.
func (g *Guard) inside(child string) bool {
	c, r := child, g.root
	if g.caseFolding {
		c, r = strings.ToLower(c), strings.ToLower(r)
	}
	if c == r {
		return true
	}
	return strings.HasPrefix(c, r+string(filepath.Separator))
}

// resolveThroughExistingAncestors canonicalizes the deepest existing ancestor
// with EvalSymlinks and re-appends the non-existent tail components.
func resolveThroughExistingAncestors(target string) (string, error) {
	if real, err := filepath.EvalSymlinks(target); err == nil {
		return real, nil
	}

	current := target
	var tail []string
	for {
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		tail = append([]string{filepath.Base(current)}, tail...)
		current = parent

		if realParent, err := filepath.EvalSymlinks(current); err == nil {
			result := realParent
			for _, component := range tail {
				result = filepath.Join(result, component)
			}
			return result, nil
		}
	}
	return filepath.Clean(target), nil
}
