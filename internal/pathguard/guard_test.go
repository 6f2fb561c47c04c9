package pathguard

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(t *testing.T) (*Guard, string) {
	t.Helper()
	home := t.TempDir()
	g, err := NewGuard(home)
	require.NoError(t, err)
	return g, g.Home()
}

func TestGuard_Resolve(t *testing.T) {
	g, home := newTestGuard(t)

	root, err := g.Resolve(filepath.Join(home, "memory"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "memory"), root)

	info, err := os.Stat(filepath.Join(root, ConversationsDir))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestGuard_Resolve_CreatesIntermediateDirectories(t *testing.T) {
	g, home := newTestGuard(t)

	root, err := g.Resolve(filepath.Join(home, "a", "b", "c"))
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(root, ConversationsDir))
}

func TestGuard_Resolve_ParentTraversal(t *testing.T) {
	g, home := newTestGuard(t)

	tests := []struct {
		name string
		path string
	}{
		{"resolves back inside home", home + "/memory/../memory"},
		{"leading traversal", "../memory"},
		{"trailing traversal", filepath.Join(home, "memory") + "/.."},
		{"backslash separated", home + `\memory\..\other`},
		{"escapes home", home + "/../../etc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Resolve(tt.path)
			require.Error(t, err)

			var secErr *SecurityError
			require.True(t, errors.As(err, &secErr))
			assert.Equal(t, ReasonParentTraversal, secErr.Reason)
			assert.ErrorIs(t, err, ErrSecurity)
		})
	}
}

func TestGuard_Resolve_DotsInsideNamesAreAllowed(t *testing.T) {
	g, home := newTestGuard(t)

	_, err := g.Resolve(filepath.Join(home, "memory..backup"))
	assert.NoError(t, err)
}

func TestGuard_Resolve_OutsideHome(t *testing.T) {
	g, home := newTestGuard(t)
	outside := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{"sibling directory", outside},
		{"filesystem root", string(filepath.Separator)},
		{"home itself", home},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Resolve(tt.path)
			require.Error(t, err)

			var secErr *SecurityError
			require.True(t, errors.As(err, &secErr))
			assert.Equal(t, ReasonOutsideHome, secErr.Reason)
		})
	}

	_, err := os.Stat(filepath.Join(outside, ConversationsDir))
	assert.True(t, os.IsNotExist(err), "rejected root must not be created")
}

func TestGuard_Resolve_SymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on windows")
	}
	g, home := newTestGuard(t)
	outside := t.TempDir()

	link := filepath.Join(home, "link")
	require.NoError(t, os.Symlink(outside, link))

	_, err := g.Resolve(filepath.Join(link, "memory"))
	require.Error(t, err)

	var secErr *SecurityError
	require.True(t, errors.As(err, &secErr))
	assert.Equal(t, ReasonOutsideHome, secErr.Reason)
}

func TestGuard_Resolve_SymlinkInsideHome(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on windows")
	}
	g, home := newTestGuard(t)

	target := filepath.Join(home, "real")
	require.NoError(t, os.MkdirAll(target, 0o700))
	link := filepath.Join(home, "alias")
	require.NoError(t, os.Symlink(target, link))

	root, err := g.Resolve(link)
	require.NoError(t, err)
	assert.Equal(t, target, root)
}

func TestGuard_Resolve_RelativePath(t *testing.T) {
	g, home := newTestGuard(t)
	t.Chdir(home)

	root, err := g.Resolve("memory")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "memory"), root)
}

func TestGuard_Resolve_EmptyPath(t *testing.T) {
	g, _ := newTestGuard(t)

	_, err := g.Resolve("")
	assert.ErrorIs(t, err, ErrEmptyPath)
	assert.NotErrorIs(t, err, ErrSecurity)
}

func TestResolve_UsesUserHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	root, err := Resolve(filepath.Join(home, "memory"))
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(root, ConversationsDir))

	_, err = Resolve(t.TempDir())
	assert.ErrorIs(t, err, ErrSecurity)
}

func TestSecurityError_Message(t *testing.T) {
	err := &SecurityError{Path: "/tmp/x", Reason: ReasonOutsideHome}
	assert.Contains(t, err.Error(), "outside home directory")
	assert.Contains(t, err.Error(), "/tmp/x")
}
