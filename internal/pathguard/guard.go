// Package pathguard validates and resolves the conversation storage root.
//
// Resolve must run once, before any other storage I/O. A root is accepted only if
// its textual form has no parent-directory segment and, after symlink resolution,
// it lies strictly inside the invoking user's home directory.
package pathguard

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ConversationsDir is the subdirectory of the storage root that holds records and shards.
const ConversationsDir = "conversations"

// Reasons carried by SecurityError.
const (
	ReasonParentTraversal = "contains parent traversal"
	ReasonOutsideHome     = "outside home directory"
)

// ErrSecurity matches every SecurityError via errors.Is.
var ErrSecurity = errors.New("unsafe storage root")

// ErrEmptyPath indicates an empty storage root was provided.
var ErrEmptyPath = errors.New("storage path cannot be empty")

// SecurityError reports a storage root that must not be used.
// Callers treat it as a hard startup failure.
type SecurityError struct {
	Path   string
	Reason string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrSecurity, e.Path, e.Reason)
}

// Is reports whether target is ErrSecurity.
func (e *SecurityError) Is(target error) bool {
	return target == ErrSecurity
}

// Guard confines storage roots to a home directory.
type Guard struct {
	home string // symlink-free absolute home directory
}

// NewGuard creates a guard for the given home directory.
// If home is empty, the invoking user's home directory is used.
func NewGuard(home string) (*Guard, error) {
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
	}

	absHome, err := filepath.Abs(home)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}

	resolved, err := resolveExisting(absHome)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}

	return &Guard{home: resolved}, nil
}

// Home returns the resolved home directory.
func (g *Guard) Home() string {
	return g.home
}

// Resolve validates rawPath and returns the absolute, symlink-free storage root.
// The root and its conversations subdirectory are created if missing.
func (g *Guard) Resolve(rawPath string) (string, error) {
	if rawPath == "" {
		return "", ErrEmptyPath
	}

	// Checked on the raw text, before any cleaning could hide the segment.
	if hasParentSegment(rawPath) {
		return "", &SecurityError{Path: rawPath, Reason: ReasonParentTraversal}
	}

	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	resolved, err := resolveExisting(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve symlinks: %w", err)
	}

	if !g.contains(resolved) {
		return "", &SecurityError{Path: rawPath, Reason: ReasonOutsideHome}
	}

	if err := os.MkdirAll(filepath.Join(resolved, ConversationsDir), 0o700); err != nil {
		return "", fmt.Errorf("failed to create storage directory %s: %w", resolved, err)
	}

	// Re-check once the directories exist; a symlink may have appeared in between.
	final, err := filepath.EvalSymlinks(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to resolve symlinks: %w", err)
	}
	if !g.contains(final) {
		return "", &SecurityError{Path: rawPath, Reason: ReasonOutsideHome}
	}

	return final, nil
}

// Resolve validates rawPath against the invoking user's home directory.
func Resolve(rawPath string) (string, error) {
	g, err := NewGuard("")
	if err != nil {
		return "", err
	}
	return g.Resolve(rawPath)
}

// contains reports whether path is strictly inside the home directory.
func (g *Guard) contains(path string) bool {
	rel, err := filepath.Rel(g.home, path)
	if err != nil {
		return false
	}
	if rel == "." || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// hasParentSegment reports whether any path segment is "..".
// Both separators are checked so the result does not depend on the host OS.
func hasParentSegment(path string) bool {
	segments := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	for _, s := range segments {
		if s == ".." {
			return true
		}
	}
	return false
}

// resolveExisting evaluates symlinks on the longest existing prefix of an absolute
// path and re-attaches the components that do not exist yet.
func resolveExisting(absPath string) (string, error) {
	existing := filepath.Clean(absPath)
	var missing []string

	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}

		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		missing = append(missing, filepath.Base(existing))
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", err
	}

	for i := len(missing) - 1; i >= 0; i-- {
		resolved = filepath.Join(resolved, missing[i])
	}
	return resolved, nil
}
