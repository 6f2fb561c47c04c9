package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/pathguard"
	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/sanitize"
)

// ErrStorage wraps infrastructural failures while persisting a record.
var ErrStorage = errors.New("storage error")

const (
	shardPrefix = "index-"
	shardExt    = ".json"

	// maxCollisionSuffix bounds the -2, -3, ... suffixes tried for one locator.
	maxCollisionSuffix = 1000
)

// StoreConfig holds configuration for the conversation store.
type StoreConfig struct {
	Root             string // Storage root, validated by pathguard
	HomeDir          string // Home directory confining Root (default: current user's)
	MinContentLength int    // Minimum content length in runes (default: 1)
	MaxSearchLimit   int    // Upper bound for search limits (default: 100)
	SlugMaxLength    int    // Maximum slug length in runes (default: 50)
}

// Store persists conversation records and maintains weekly index shards.
type Store struct {
	root          string
	dir           string
	validator     *sanitize.Validator
	slugMaxLength int
	locks         *shardLocks
	logger        *zap.Logger
}

// NewStore validates the storage root and creates a store.
// A *pathguard.SecurityError means the root must not be used.
func NewStore(cfg StoreConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	guard, err := pathguard.NewGuard(cfg.HomeDir)
	if err != nil {
		return nil, err
	}

	root, err := guard.Resolve(cfg.Root)
	if err != nil {
		return nil, err
	}

	s := &Store{
		root:          root,
		dir:           filepath.Join(root, pathguard.ConversationsDir),
		validator:     sanitize.NewValidator(cfg.MinContentLength, cfg.MaxSearchLimit),
		slugMaxLength: cfg.SlugMaxLength,
		locks:         newShardLocks(),
		logger:        logger,
	}

	logger.Info("conversation store ready",
		zap.String("root", root),
		zap.String("conversations_dir", s.dir),
	)

	return s, nil
}

// Root returns the validated storage root.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the directory holding records and shards.
func (s *Store) Dir() string {
	return s.dir
}

// Add validates and persists a conversation, then appends it to its week's
// shard. Validation failures leave nothing on disk. A failed shard update is
// logged but does not fail the call: the record is on disk and RebuildWeek
// recovers the entry.
func (s *Store) Add(ctx context.Context, title, content, date string) (string, error) {
	title, err := sanitize.ValidateTitle(title)
	if err != nil {
		return "", err
	}
	content, err = s.validator.ValidateContent(content)
	if err != nil {
		return "", err
	}
	ts, err := sanitize.ValidateDate(date)
	if err != nil {
		return "", err
	}
	date = strings.TrimSpace(date)

	conv := &Conversation{
		Title:     title,
		Content:   content,
		Date:      date,
		Timestamp: ts,
	}

	data, err := RenderRecord(conv)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	base := ts.Format("2006-01-02") + "_" + sanitize.Slug(title, s.slugMaxLength)
	path, err := s.writeRecord(base, data)
	if err != nil {
		recordAdd(err)
		return "", fmt.Errorf("%w: writing record: %v", ErrStorage, err)
	}
	conv.ID = recordID(path)
	conv.StorageLocator = path

	week := WeekOf(ts)
	entry := IndexEntry{
		ConversationID: conv.ID,
		Title:          conv.Title,
		Date:           conv.Date,
		StorageLocator: conv.StorageLocator,
		timestamp:      ts,
	}
	if err := s.appendToIndex(ctx, week, entry); err != nil {
		IndexUpdateFailuresTotal.Inc()
		s.logger.Error("failed to update week index, record remains on disk",
			zap.String("conversation_id", conv.ID),
			zap.String("week", week.String()),
			zap.Error(err),
		)
	}

	recordAdd(nil)
	s.logger.Info("conversation stored",
		zap.String("conversation_id", conv.ID),
		zap.String("week", week.String()),
		zap.Int("content_bytes", len(content)),
	)

	return conv.ID, nil
}

// writeRecord atomically publishes data under a fresh name derived from base.
// The data is written to a temp file and hard-linked onto the final name, which
// fails instead of overwriting when the name is taken.
func (s *Store) writeRecord(base string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(s.dir, ".record-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	for i := 1; i <= maxCollisionSuffix; i++ {
		name := base
		if i > 1 {
			name = fmt.Sprintf("%s-%d", base, i)
		}
		target := filepath.Join(s.dir, name+recordExt)

		err := publish(tmpPath, target)
		if err == nil {
			syncDir(s.dir)
			return target, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
	}

	return "", fmt.Errorf("no free locator for %q after %d attempts", base, maxCollisionSuffix)
}

// publish makes src visible at dst without ever replacing an existing dst.
func publish(src, dst string) error {
	err := os.Link(src, dst)
	if err == nil || errors.Is(err, fs.ErrExist) {
		return err
	}

	// Filesystems without hard links: reserve the name exclusively, then rename
	// the complete file over the empty placeholder.
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	f.Close()
	if err := os.Rename(src, dst); err != nil {
		os.Remove(dst)
		return fmt.Errorf("renaming record: %w", err)
	}
	return nil
}

// syncDir flushes directory metadata. Not every platform supports it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// shardPath returns the shard file for a week.
func (s *Store) shardPath(week Week) string {
	return filepath.Join(s.dir, shardPrefix+week.String()+shardExt)
}

// appendToIndex adds entry to its week's shard under the shard lock. A shard
// that cannot be read or parsed is rebuilt from the records on disk, which
// already include the record for entry.
func (s *Store) appendToIndex(ctx context.Context, week Week, entry IndexEntry) error {
	path := s.shardPath(week)

	unlock, err := s.locks.lock(path)
	if err != nil {
		return fmt.Errorf("locking shard %s: %w", week, err)
	}
	defer unlock()

	read := s.readShard(week)

	var entries []IndexEntry
	switch read.Status {
	case ShardOK:
		// A rebuild that ran after the record was written may have indexed it.
		if containsID(read.Entries, entry.ConversationID) {
			return nil
		}
		entries = append(read.Entries, entry)
	case ShardAbsent:
		entries = []IndexEntry{entry}
	default:
		s.logger.Warn("week shard damaged, rebuilding from records",
			zap.String("week", week.String()),
			zap.String("status", string(read.Status)),
			zap.Error(read.Err),
		)
		entries, _, err = s.collectWeek(ctx, week)
		if err != nil {
			return err
		}
	}

	return s.writeShard(week, entries)
}

func containsID(entries []IndexEntry, id string) bool {
	for _, e := range entries {
		if e.ConversationID == id {
			return true
		}
	}
	return false
}

// shardFile is the on-disk shard structure.
type shardFile struct {
	Week          string       `json:"week,omitempty"`
	UpdatedAt     string       `json:"updated_at,omitempty"`
	Conversations []IndexEntry `json:"conversations"`
}

// writeShard atomically replaces a week's shard. Callers hold the shard lock.
func (s *Store) writeShard(week Week, entries []IndexEntry) error {
	if entries == nil {
		entries = []IndexEntry{}
	}

	data, err := json.MarshalIndent(shardFile{
		Week:          week.String(),
		UpdatedAt:     time.Now().UTC().Format(time.RFC3339),
		Conversations: entries,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling shard: %w", err)
	}

	path := s.shardPath(week)
	tmp, err := os.CreateTemp(s.dir, ".shard-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp shard: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing shard: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing shard: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing shard: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming shard: %w", err)
	}
	syncDir(s.dir)

	return nil
}

// sortEntries orders entries by date, then conversation ID.
func sortEntries(entries []IndexEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		ti, tj := entries[i].timestamp, entries[j].timestamp
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return entries[i].ConversationID < entries[j].ConversationID
	})
}

// Ensure Store implements ConversationStore.
var _ ConversationStore = (*Store)(nil)
