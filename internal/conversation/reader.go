package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/sanitize"
)

// GetRange returns the index entries dated within [start, end], oldest first.
// Each week's shard is read independently; a shard that is absent, unreadable
// or malformed contributes nothing and is reported through logs and metrics
// only. The result is never nil.
func (s *Store) GetRange(ctx context.Context, start, end time.Time) []IndexEntry {
	result := []IndexEntry{}
	if end.Before(start) {
		return result
	}

	// Records are bucketed by the week of their own date, so a neighbouring
	// week may hold entries that fall inside the range once offsets apply.
	for _, week := range WeeksBetween(start.AddDate(0, 0, -1), end.AddDate(0, 0, 1)) {
		read := s.readShard(week)
		s.logShardRead(read)

		for _, e := range read.Entries {
			if e.timestamp.Before(start) || e.timestamp.After(end) {
				continue
			}
			result = append(result, e)
		}
	}

	sortEntries(result)

	s.logger.Debug("week range listed",
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("entries", len(result)),
	)
	return result
}

// ReadShard reports the raw outcome of reading one week's shard.
func (s *Store) ReadShard(week Week) ShardRead {
	return s.readShard(week)
}

// readShard never fails; faults are carried in the returned status.
func (s *Store) readShard(week Week) ShardRead {
	read := ShardRead{Week: week, Path: s.shardPath(week)}
	defer func() { recordShardRead(read.Status) }()

	data, err := os.ReadFile(read.Path)
	if err != nil {
		read.Err = err
		if errors.Is(err, fs.ErrNotExist) {
			read.Status = ShardAbsent
		} else {
			read.Status = ShardUnreadable
		}
		return read
	}

	entries, err := decodeShard(data)
	if err != nil {
		read.Status = ShardMalformed
		read.Err = err
		return read
	}

	read.Status = ShardOK
	read.Entries = entries
	return read
}

// decodeShard parses shard bytes. Any structural fault, including an entry
// without a usable date, identifier or locator, rejects the whole shard.
func decodeShard(data []byte) ([]IndexEntry, error) {
	var raw struct {
		Conversations *[]IndexEntry `json:"conversations"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding shard: %w", err)
	}
	if raw.Conversations == nil {
		return nil, errors.New("shard has no conversations list")
	}

	entries := *raw.Conversations
	for i := range entries {
		e := &entries[i]
		if strings.TrimSpace(e.ConversationID) == "" || strings.TrimSpace(e.StorageLocator) == "" {
			return nil, fmt.Errorf("entry %d: missing conversation_id or storage_locator", i)
		}
		ts, err := sanitize.ValidateDate(e.Date)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		e.timestamp = ts
	}
	return entries, nil
}

func (s *Store) logShardRead(read ShardRead) {
	switch read.Status {
	case ShardOK:
	case ShardAbsent:
		s.logger.Debug("week shard absent",
			zap.String("week", read.Week.String()),
		)
	default:
		s.logger.Warn("week shard skipped",
			zap.String("week", read.Week.String()),
			zap.String("path", read.Path),
			zap.String("status", string(read.Status)),
			zap.Error(read.Err),
		)
	}
}
