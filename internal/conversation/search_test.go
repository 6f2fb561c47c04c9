package conversation

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/sanitize"
)

func TestStore_Search(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "Test Chat", "Hello world", "2025-06-03T10:00:00")
	require.NoError(t, err)

	matches, err := store.Search(ctx, "world", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Test Chat", matches[0].Title)
	assert.Equal(t, "2025-06-03_test-chat", matches[0].ID)
	assert.True(t, matches[0].MatchedContent)
	assert.False(t, matches[0].MatchedTitle)
	assert.Equal(t, "Hello world", matches[0].Preview)

	matches, err = store.Search(ctx, "nonexistent-term", 5)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestStore_Search_InvalidArguments(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Search(ctx, "world", 0)
	assert.ErrorIs(t, err, sanitize.ErrInvalidLimit)

	_, err = store.Search(ctx, "world", -1)
	assert.ErrorIs(t, err, sanitize.ErrInvalidLimit)

	_, err = store.Search(ctx, "world", sanitize.DefaultMaxLimit+1)
	assert.ErrorIs(t, err, sanitize.ErrInvalidLimit)

	_, err = store.Search(ctx, "  ", 5)
	assert.ErrorIs(t, err, sanitize.ErrInvalidQuery)
}

func TestStore_Search_CaseInsensitiveTitleAndContent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "Kubernetes Upgrade", "notes", "2025-06-03")
	require.NoError(t, err)
	_, err = store.Add(ctx, "Other", "we discussed KUBERNETES today", "2025-06-04")
	require.NoError(t, err)

	matches, err := store.Search(ctx, "kubernetes", 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "Other", matches[0].Title)
	assert.True(t, matches[0].MatchedContent)
	assert.Equal(t, "Kubernetes Upgrade", matches[1].Title)
	assert.True(t, matches[1].MatchedTitle)
	assert.False(t, matches[1].MatchedContent)
}

func TestStore_Search_LimitPrefersNewest(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, d := range []string{"2025-01-01", "2025-03-01", "2025-02-01", "2025-03-01"} {
		_, err := store.Add(ctx, "Chat", "needle", d)
		require.NoError(t, err)
	}

	matches, err := store.Search(ctx, "needle", 3)
	require.NoError(t, err)

	var ids []string
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"2025-03-01_chat", "2025-03-01_chat-2", "2025-02-01_chat"}, ids)
}

func TestStore_Search_Preview(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	content := strings.Repeat("a", 500) + "NEEDLE" + strings.Repeat("é", 500)
	_, err := store.Add(ctx, "Long", content, "2025-06-03")
	require.NoError(t, err)

	matches, err := store.Search(ctx, "needle", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	p := matches[0].Preview
	assert.Contains(t, p, "NEEDLE")
	assert.True(t, strings.HasPrefix(p, "..."))
	assert.True(t, strings.HasSuffix(p, "..."))
	assert.Len(t, []rune(strings.Trim(p, ".")), previewLength)
}

func TestStore_Search_SkipsBrokenRecords(t *testing.T) {
	store, logs := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "Good", "needle", "2025-06-03")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "2025-06-04_broken.md"), []byte("needle without front matter"), 0o600))
	// Empty file left by an in-flight reservation.
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "2025-06-05_reserved.md"), nil, 0o600))

	matches, err := store.Search(ctx, "needle", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Good", matches[0].Title)
	assert.Equal(t, 2, logs.FilterMessage("skipping unreadable conversation record").Len())
}

func TestStore_Search_IgnoresIndexState(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "Test Chat", "Hello world", "2025-06-03T10:00:00")
	require.NoError(t, err)
	require.NoError(t, os.Remove(store.shardPath(week23())))

	matches, err := store.Search(ctx, "world", 5)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestIndexRunes(t *testing.T) {
	assert.Equal(t, 0, indexRunes([]rune("abc"), nil))
	assert.Equal(t, 1, indexRunes([]rune("abc"), []rune("bc")))
	assert.Equal(t, -1, indexRunes([]rune("abc"), []rune("cd")))
	assert.Equal(t, 1, indexRunes(foldRunes("tÉt"), foldRunes("é")))
}
