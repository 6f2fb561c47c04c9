// Package conversation persists conversation transcripts as individual Markdown
// files and maintains a weekly index for date-range queries.
//
// # Storage Layout
//
//	<root>/conversations/<YYYY-MM-DD>_<slug>.md      one record per conversation
//	<root>/conversations/index-<YYYY>-W<WW>.json     one index shard per ISO week
//
// Records are the source of truth. A shard is a derived cache of lightweight
// entries and can always be discarded and rebuilt from the records on disk.
//
// # Usage
//
//	store, err := conversation.NewStore(conversation.StoreConfig{
//	    Root: "/home/me/claude-memory",
//	}, logger)
//	if err != nil {
//	    // pathguard.SecurityError: refuse to start
//	}
//
//	id, err := store.Add(ctx, "Test Chat", "Hello world", "2025-06-03T10:00:00")
//
//	entries := store.GetRange(ctx, start, end)
//
//	matches, err := store.Search(ctx, "world", 5)
//
// # Failure Policy
//
// Add writes the record first and only then appends to the week's shard, so an
// index failure never loses a write. GetRange never returns an error: a shard that
// is absent, unreadable or malformed contributes zero entries, and the outcome is
// logged and counted per shard.
package conversation
