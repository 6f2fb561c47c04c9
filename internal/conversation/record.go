package conversation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/sanitize"
)

const (
	frontMatterDelimiter = "---"
	recordExt            = ".md"
)

// ErrMalformedRecord indicates a record file that cannot be parsed.
var ErrMalformedRecord = errors.New("malformed conversation record")

// recordMeta is the YAML front matter of a record file.
type recordMeta struct {
	Title string `yaml:"title"`
	Date  string `yaml:"date"`
}

// RenderRecord renders a conversation to its persisted form: YAML front matter,
// a title heading, a date line and the transcript body.
func RenderRecord(c *Conversation) ([]byte, error) {
	meta, err := yaml.Marshal(&recordMeta{Title: c.Title, Date: c.Date})
	if err != nil {
		return nil, fmt.Errorf("rendering record front matter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(frontMatterDelimiter + "\n")
	sb.Write(meta)
	sb.WriteString(frontMatterDelimiter + "\n\n")
	sb.WriteString(recordHeader(c.Title, c.Date))
	sb.WriteString(c.Content)
	return []byte(sb.String()), nil
}

// ParseRecord reverses RenderRecord. The ID and storage locator are derived from
// path; the timestamp is parsed from the front matter date.
func ParseRecord(path string, raw []byte) (*Conversation, error) {
	s := string(raw)
	if !strings.HasPrefix(s, frontMatterDelimiter+"\n") {
		return nil, fmt.Errorf("%w: missing front matter", ErrMalformedRecord)
	}
	rest := s[len(frontMatterDelimiter)+1:]

	idx := strings.Index(rest, frontMatterDelimiter+"\n")
	if idx != 0 {
		idx = strings.Index(rest, "\n"+frontMatterDelimiter+"\n")
		if idx == -1 {
			return nil, fmt.Errorf("%w: unclosed front matter", ErrMalformedRecord)
		}
		idx++
	}

	var meta recordMeta
	if err := yaml.Unmarshal([]byte(rest[:idx]), &meta); err != nil {
		return nil, fmt.Errorf("%w: front matter: %v", ErrMalformedRecord, err)
	}
	if meta.Title == "" || meta.Date == "" {
		return nil, fmt.Errorf("%w: missing title or date", ErrMalformedRecord)
	}

	ts, err := sanitize.ValidateDate(meta.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	body := strings.TrimPrefix(rest[idx+len(frontMatterDelimiter)+1:], "\n")
	body = strings.TrimPrefix(body, recordHeader(meta.Title, meta.Date))

	return &Conversation{
		ID:             recordID(path),
		Title:          meta.Title,
		Content:        body,
		Date:           meta.Date,
		Timestamp:      ts,
		StorageLocator: path,
	}, nil
}

// recordHeader is the human-readable heading and date line. Newlines in the
// title are flattened so the heading stays on one line.
func recordHeader(title, date string) string {
	heading := strings.Join(strings.Fields(title), " ")
	return fmt.Sprintf("# %s\n\n**Date:** %s\n\n", heading, date)
}

// recordID is the file name without its extension.
func recordID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), recordExt)
}
