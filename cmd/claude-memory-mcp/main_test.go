package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/conversation"
	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/pathguard"
)

func testHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("CLAUDE_MEMORY_LOG_LEVEL", "error")
	return home
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:")
}

func TestCommands_EndToEnd(t *testing.T) {
	testHome(t)

	out, err := execute(t, "we discussed channel select semantics", "add", "--title", "Go channels", "--date", "2025-06-02T10:00:00")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(id, "2025-06-02_"), id)

	out, err = execute(t, "", "week", "--start", "2025-06-01", "--end", "2025-06-08")
	require.NoError(t, err)
	var entries []conversation.IndexEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ConversationID)

	out, err = execute(t, "", "search", "SELECT")
	require.NoError(t, err)
	var matches []conversation.Match
	require.NoError(t, json.Unmarshal([]byte(out), &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, id, matches[0].ID)

	out, err = execute(t, "", "rebuild", "--date", "2025-06-04")
	require.NoError(t, err)
	assert.Equal(t, "2025-W23: 1 entries\n", out)

	out, err = execute(t, "", "rebuild")
	require.NoError(t, err)
	var result conversation.RebuildResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 1, result.Weeks)
	assert.Equal(t, 1, result.Entries)
}

func TestAddCmd_RequiresTitle(t *testing.T) {
	testHome(t)
	_, err := execute(t, "content", "add")
	assert.Error(t, err)
}

func TestAddCmd_RejectsBadDate(t *testing.T) {
	testHome(t)
	_, err := execute(t, "content", "add", "--title", "x", "--date", "last tuesday")
	assert.Error(t, err)
}

func TestSearchCmd_RejectsZeroLimit(t *testing.T) {
	testHome(t)
	_, err := execute(t, "", "search", "go", "--limit", "0")
	assert.Error(t, err)
}

func TestSetup_RejectsRootOutsideHome(t *testing.T) {
	testHome(t)
	t.Setenv("CLAUDE_MEMORY_STORAGE_PATH", "/etc/claude-memory-data")

	_, err := execute(t, "", "week", "--start", "2025-06-01", "--end", "2025-06-08")
	require.Error(t, err)
	assert.ErrorIs(t, err, pathguard.ErrSecurity)
}

func TestSetup_ExplicitConfigFile(t *testing.T) {
	home := testHome(t)
	dir := filepath.Join(home, ".config", "claude-memory")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	path := filepath.Join(dir, "notes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  path: ~/notes\n"), 0o600))

	out, err := execute(t, "", "--config", path, "week", "--start", "2025-06-01", "--end", "2025-06-08")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)

	info, err := os.Stat(filepath.Join(home, "notes", "conversations"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
