package conversation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// RebuildWeek regenerates one week's shard from the record files on disk and
// returns the number of entries written. Unparseable records are skipped.
func (s *Store) RebuildWeek(ctx context.Context, week Week) (int, error) {
	unlock, err := s.locks.lock(s.shardPath(week))
	if err != nil {
		return 0, fmt.Errorf("%w: locking shard %s: %v", ErrStorage, week, err)
	}
	defer unlock()

	entries, skipped, err := s.collectWeek(ctx, week)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := s.writeShard(week, entries); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	ShardRebuildsTotal.Inc()

	s.logger.Info("week index rebuilt",
		zap.String("week", week.String()),
		zap.Int("entries", len(entries)),
		zap.Int("skipped", skipped),
	)
	return len(entries), nil
}

// Rebuild regenerates the shard of every week that has records or an existing
// shard file. Shards of weeks without records are rewritten empty.
func (s *Store) Rebuild(ctx context.Context) (RebuildResult, error) {
	var result RebuildResult

	records, skipped := s.scanRecords(ctx)
	result.Skipped = skipped
	weeks := map[Week]struct{}{}
	for _, c := range records {
		weeks[WeekOf(c.Timestamp)] = struct{}{}
	}

	shards, err := filepath.Glob(filepath.Join(s.dir, shardPrefix+"*"+shardExt))
	if err != nil {
		return result, fmt.Errorf("%w: listing shards: %v", ErrStorage, err)
	}
	for _, path := range shards {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), shardPrefix), shardExt)
		if w, err := ParseWeek(name); err == nil {
			weeks[w] = struct{}{}
		}
	}

	ordered := make([]Week, 0, len(weeks))
	for w := range weeks {
		ordered = append(ordered, w)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	for _, w := range ordered {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		n, err := s.RebuildWeek(ctx, w)
		if err != nil {
			return result, err
		}
		result.Weeks++
		result.Entries += n
	}

	return result, nil
}

// collectWeek builds the sorted index entries for week from the records on disk.
func (s *Store) collectWeek(ctx context.Context, week Week) ([]IndexEntry, int, error) {
	if _, err := os.Stat(s.dir); err != nil {
		return nil, 0, fmt.Errorf("reading conversations directory: %w", err)
	}

	records, skipped := s.scanRecords(ctx)
	if err := ctx.Err(); err != nil {
		return nil, skipped, err
	}

	entries := []IndexEntry{}
	for _, c := range records {
		if WeekOf(c.Timestamp) != week {
			continue
		}
		entries = append(entries, IndexEntry{
			ConversationID: c.ID,
			Title:          c.Title,
			Date:           c.Date,
			StorageLocator: c.StorageLocator,
			timestamp:      c.Timestamp,
		})
	}
	sortEntries(entries)

	return entries, skipped, nil
}
