package mcp

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/conversation"
	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/logging"
)

// fakeStore records calls and returns canned results.
type fakeStore struct {
	addID     string
	addErr    error
	entries   []conversation.IndexEntry
	matches   []conversation.Match
	searchErr error
	rebuilt   int
	rebuildFn func(conversation.Week) (int, error)

	rangeCalls  int
	lastStart   time.Time
	lastEnd     time.Time
	lastLimit   int
	lastRebuild conversation.Week
}

func (f *fakeStore) Add(ctx context.Context, title, content, date string) (string, error) {
	return f.addID, f.addErr
}

func (f *fakeStore) GetRange(ctx context.Context, start, end time.Time) []conversation.IndexEntry {
	f.rangeCalls++
	f.lastStart, f.lastEnd = start, end
	if f.entries == nil {
		return []conversation.IndexEntry{}
	}
	return f.entries
}

func (f *fakeStore) Search(ctx context.Context, query string, limit int) ([]conversation.Match, error) {
	f.lastLimit = limit
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.matches == nil {
		return []conversation.Match{}, nil
	}
	return f.matches, nil
}

func (f *fakeStore) RebuildWeek(ctx context.Context, week conversation.Week) (int, error) {
	f.lastRebuild = week
	if f.rebuildFn != nil {
		return f.rebuildFn(week)
	}
	return f.rebuilt, nil
}

func newTestServer(t *testing.T, store conversation.ConversationStore) (*Server, *logging.TestLogger) {
	t.Helper()
	tl := logging.NewTestLogger()
	cfg := DefaultConfig()
	cfg.Logger = tl.Logger

	s, err := NewServer(cfg, store)
	require.NoError(t, err)
	return s, tl
}

// newStoreServer wires a server to a real store rooted in a temp home.
func newStoreServer(t *testing.T) *Server {
	t.Helper()
	home := t.TempDir()
	store, err := conversation.NewStore(conversation.StoreConfig{
		Root:    filepath.Join(home, "claude-memory"),
		HomeDir: home,
	}, nil)
	require.NoError(t, err)

	s, _ := newTestServer(t, store)
	return s
}

func TestNewServer(t *testing.T) {
	s, _ := newTestServer(t, &fakeStore{})
	assert.NotNil(t, s.MCPServer())
	assert.Equal(t, 10, s.defaultLimit)
}

func TestNewServer_RequiresStore(t *testing.T) {
	_, err := NewServer(nil, nil)
	assert.ErrorContains(t, err, "conversation store is required")
}

func TestNewServer_NilConfigAndLogger(t *testing.T) {
	s, err := NewServer(&Config{Name: "x", Version: "1"}, &fakeStore{})
	require.NoError(t, err)
	assert.Equal(t, 10, s.defaultLimit)
}

func TestInstrument_Success(t *testing.T) {
	s, tl := newTestServer(t, &fakeStore{})

	h := instrument(s, "echo_tool", func(ctx context.Context, in string) (string, error) {
		assert.NotEmpty(t, logging.RequestIDFromContext(ctx))
		assert.Equal(t, "echo_tool", logging.ToolFromContext(ctx))
		return in + "!", nil
	}, func(out string) string { return "said " + out })

	res, out, err := h(context.Background(), nil, "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi!", out)
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)

	tl.AssertLogged(t, zapcore.DebugLevel, "tool call completed")
}

func TestInstrument_Error(t *testing.T) {
	s, tl := newTestServer(t, &fakeStore{})
	boom := errors.New("boom")

	h := instrument(s, "fail_tool", func(ctx context.Context, in string) (string, error) {
		return "ignored", boom
	}, func(out string) string { return out })

	res, out, err := h(context.Background(), nil, "x")
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, res)
	assert.Empty(t, out)

	tl.AssertLogged(t, zapcore.WarnLevel, "tool call failed")
	tl.AssertField(t, "tool call failed", "reason", "internal_error")
	tl.AssertField(t, "tool call failed", "tool", "fail_tool")
}
