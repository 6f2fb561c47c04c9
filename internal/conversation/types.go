package conversation

import (
	"context"
	"fmt"
	"time"
)

// Conversation is a persisted transcript record.
type Conversation struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Date           string    `json:"date"`
	Timestamp      time.Time `json:"-"`
	StorageLocator string    `json:"storage_locator"`
}

// IndexEntry is the lightweight shard entry for one conversation.
type IndexEntry struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
	Date           string `json:"date"`
	StorageLocator string `json:"storage_locator"`

	timestamp time.Time
}

// Match is a single search result.
type Match struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Date           string `json:"date"`
	StorageLocator string `json:"storage_locator"`
	Preview        string `json:"preview"`
	MatchedTitle   bool   `json:"matched_title"`
	MatchedContent bool   `json:"matched_content"`
}

// ShardStatus is the outcome of reading one weekly shard.
type ShardStatus string

const (
	// ShardOK means the shard was read and parsed.
	ShardOK ShardStatus = "ok"
	// ShardAbsent means no shard exists for the week.
	ShardAbsent ShardStatus = "absent"
	// ShardUnreadable means the shard exists but could not be read.
	ShardUnreadable ShardStatus = "unreadable"
	// ShardMalformed means the shard content is not a valid shard.
	ShardMalformed ShardStatus = "malformed"
)

// ShardRead keeps "empty because no data" apart from "empty because the read
// failed". Only Entries ever reaches callers of GetRange.
type ShardRead struct {
	Week    Week
	Path    string
	Status  ShardStatus
	Err     error
	Entries []IndexEntry
}

// RebuildResult summarizes an index rebuild.
type RebuildResult struct {
	Weeks   int `json:"weeks"`
	Entries int `json:"entries"`
	Skipped int `json:"skipped"`
}

// Week identifies an ISO-8601 week.
type Week struct {
	Year   int
	Number int
}

// WeekOf returns the ISO week containing t, in t's own location.
func WeekOf(t time.Time) Week {
	y, w := t.ISOWeek()
	return Week{Year: y, Number: w}
}

// String formats the week as YYYY-Www.
func (w Week) String() string {
	return fmt.Sprintf("%04d-W%02d", w.Year, w.Number)
}

// ParseWeek parses the YYYY-Www form produced by String.
func ParseWeek(s string) (Week, error) {
	var w Week
	if _, err := fmt.Sscanf(s, "%4d-W%2d", &w.Year, &w.Number); err != nil {
		return Week{}, fmt.Errorf("invalid week %q: %w", s, err)
	}
	if w.Number < 1 || w.Number > 53 || WeekOf(w.Start()) != w {
		return Week{}, fmt.Errorf("invalid week %q", s)
	}
	return w, nil
}

// Start returns Monday 00:00 UTC of the week.
func (w Week) Start() time.Time {
	// January 4th always falls in ISO week 1.
	jan4 := time.Date(w.Year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset)
	return monday.AddDate(0, 0, (w.Number-1)*7)
}

// Next returns the following week.
func (w Week) Next() Week {
	return WeekOf(w.Start().AddDate(0, 0, 7))
}

// Before reports whether w is earlier than other.
func (w Week) Before(other Week) bool {
	if w.Year != other.Year {
		return w.Year < other.Year
	}
	return w.Number < other.Number
}

// WeeksBetween returns every ISO week overlapping [start, end], in order.
func WeeksBetween(start, end time.Time) []Week {
	if end.Before(start) {
		return nil
	}

	first, last := WeekOf(start), WeekOf(end)
	var weeks []Week
	for w := first; !last.Before(w); w = w.Next() {
		weeks = append(weeks, w)
	}
	return weeks
}

// ConversationStore defines the operations exposed to the dispatch layer.
type ConversationStore interface {
	// Add validates and persists a conversation, returning its identifier.
	Add(ctx context.Context, title, content, date string) (string, error)

	// GetRange lists index entries dated within [start, end]. It never fails.
	GetRange(ctx context.Context, start, end time.Time) []IndexEntry

	// Search finds conversations whose title or content contains query.
	Search(ctx context.Context, query string, limit int) ([]Match, error)

	// RebuildWeek regenerates one week's shard from the records on disk.
	RebuildWeek(ctx context.Context, week Week) (int, error)
}
