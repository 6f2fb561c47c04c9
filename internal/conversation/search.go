package conversation

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/sanitize"
)

// previewLength is the preview window in runes.
const previewLength = 200

// Search returns up to limit conversations whose title or content contains
// query, ignoring case. Newer conversations come first; equal dates are
// ordered by ID. Only invalid arguments produce an error.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Match, error) {
	query, err := sanitize.ValidateSearchQuery(query)
	if err != nil {
		return nil, err
	}
	limit, err = s.validator.ValidateLimit(limit)
	if err != nil {
		return nil, err
	}

	records := s.loadRecords(ctx)
	sort.SliceStable(records, func(i, j int) bool {
		ti, tj := records[i].Timestamp, records[j].Timestamp
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return records[i].ID < records[j].ID
	})

	needle := foldRunes(query)
	matches := []Match{}
	for _, c := range records {
		if len(matches) == limit {
			break
		}

		content := []rune(c.Content)
		contentAt := indexRunes(foldRunes(c.Content), needle)
		inTitle := indexRunes(foldRunes(c.Title), needle) >= 0
		if contentAt < 0 && !inTitle {
			continue
		}

		matches = append(matches, Match{
			ID:             c.ID,
			Title:          c.Title,
			Date:           c.Date,
			StorageLocator: c.StorageLocator,
			Preview:        preview(content, contentAt, len(needle)),
			MatchedTitle:   inTitle,
			MatchedContent: contentAt >= 0,
		})
	}

	s.logger.Debug("search completed",
		zap.String("query", query),
		zap.Int("limit", limit),
		zap.Int("scanned", len(records)),
		zap.Int("matches", len(matches)),
	)
	return matches, nil
}

// loadRecords parses every record file under the conversations directory.
// Files that cannot be read or parsed are skipped with a warning.
func (s *Store) loadRecords(ctx context.Context) []*Conversation {
	records, _ := s.scanRecords(ctx)
	return records
}

// scanRecords is loadRecords that also reports how many files were skipped.
func (s *Store) scanRecords(ctx context.Context) ([]*Conversation, int) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("failed to list conversations directory",
			zap.String("dir", s.dir),
			zap.Error(err),
		)
		return nil, 0
	}

	var (
		records []*Conversation
		skipped int
	)
	for _, d := range dirents {
		if ctx.Err() != nil {
			break
		}
		name := d.Name()
		if d.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != recordExt {
			continue
		}

		path := filepath.Join(s.dir, name)
		raw, err := os.ReadFile(path)
		if err == nil {
			var c *Conversation
			if c, err = ParseRecord(path, raw); err == nil {
				records = append(records, c)
				continue
			}
		}

		skipped++
		RecordsSkippedTotal.Inc()
		s.logger.Warn("skipping unreadable conversation record",
			zap.String("path", path),
			zap.Error(err),
		)
	}
	return records, skipped
}

// foldRunes lowercases rune by rune so offsets line up with the original text.
func foldRunes(s string) []rune {
	r := []rune(s)
	for i, c := range r {
		r[i] = unicode.ToLower(c)
	}
	return r
}

// indexRunes returns the rune offset of needle in hay, or -1.
func indexRunes(hay, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
outer:
	for i := 0; i+len(needle) <= len(hay); i++ {
		for j, c := range needle {
			if hay[i+j] != c {
				continue outer
			}
		}
		return i
	}
	return -1
}

// preview cuts a window of previewLength runes centered on the match at the
// given offset, or the opening of the content when there is no match.
func preview(content []rune, at, matchLen int) string {
	if len(content) <= previewLength {
		return string(content)
	}

	start := 0
	if at > 0 {
		start = at - (previewLength-matchLen)/2
		if start < 0 {
			start = 0
		}
		if start+previewLength > len(content) {
			start = len(content) - previewLength
		}
	}
	end := start + previewLength

	var sb strings.Builder
	if start > 0 {
		sb.WriteString("...")
	}
	sb.WriteString(string(content[start:end]))
	if end < len(content) {
		sb.WriteString("...")
	}
	return sb.String()
}
