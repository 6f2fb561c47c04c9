// Package sanitize provides input validation and filesystem-safe naming for
// conversation records.
package sanitize

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Validation errors. Each rejected input wraps exactly one of these.
var (
	// ErrInvalidTitle indicates a title that is empty after trimming.
	ErrInvalidTitle = errors.New("invalid title")

	// ErrInvalidContent indicates empty or too-short content.
	ErrInvalidContent = errors.New("invalid content")

	// ErrInvalidDate indicates a date that is not ISO-8601.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidQuery indicates an empty or all-whitespace search query.
	ErrInvalidQuery = errors.New("invalid search query")

	// ErrInvalidLimit indicates a result limit outside 1..MaxLimit.
	ErrInvalidLimit = errors.New("invalid limit")
)

const (
	// DefaultMinContentLength is the minimum content length in runes.
	DefaultMinContentLength = 1

	// DefaultMaxLimit bounds the number of search results a caller may request.
	DefaultMaxLimit = 100
)

// isoLayouts are the accepted ISO-8601 forms. Fractional seconds are accepted
// after the seconds field by time.Parse even though the layouts omit them.
var isoLayouts = []struct {
	layout   string
	dateOnly bool
}{
	{"2006-01-02", true},
	{"2006-01-02T15:04", false},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02T15:04Z07:00", false},
	{"2006-01-02T15:04:05Z07:00", false},
}

// Validator applies configurable thresholds. The zero value uses the defaults.
type Validator struct {
	MinContentLength int
	MaxLimit         int
}

// NewValidator creates a validator. Non-positive arguments select the defaults.
func NewValidator(minContentLength, maxLimit int) *Validator {
	return &Validator{MinContentLength: minContentLength, MaxLimit: maxLimit}
}

func (v *Validator) minContentLength() int {
	if v == nil || v.MinContentLength < 1 {
		return DefaultMinContentLength
	}
	return v.MinContentLength
}

func (v *Validator) maxLimit() int {
	if v == nil || v.MaxLimit < 1 {
		return DefaultMaxLimit
	}
	return v.MaxLimit
}

// ValidateTitle rejects titles that are empty after trimming.
// The title is returned unchanged.
func ValidateTitle(title string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("%w: title cannot be empty", ErrInvalidTitle)
	}
	return title, nil
}

// ValidateContent checks content against the default minimum length.
func ValidateContent(content string) (string, error) {
	return (*Validator)(nil).ValidateContent(content)
}

// ValidateContent rejects empty content and content shorter than the configured
// minimum. Whitespace-only content is valid and returned unchanged. With the
// default minimum of 1 the too-short branch cannot trigger once the empty check passes.
func (v *Validator) ValidateContent(content string) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("%w: content cannot be empty", ErrInvalidContent)
	}

	minLen := v.minContentLength()
	if minLen > DefaultMinContentLength && utf8.RuneCountInString(content) < minLen {
		return "", fmt.Errorf("%w: content must be at least %d characters", ErrInvalidContent, minLen)
	}

	return content, nil
}

// ValidateDate parses an ISO-8601 date or date-time.
// Timestamps without an offset are interpreted as UTC.
func ValidateDate(date string) (time.Time, error) {
	t, _, err := parseISO(date)
	return t, err
}

// ValidateDateRangeEnd parses the upper bound of a date range. A bare date
// (YYYY-MM-DD) covers the whole day, so the last instant of that day is returned.
func ValidateDateRangeEnd(date string) (time.Time, error) {
	t, dateOnly, err := parseISO(date)
	if err != nil {
		return time.Time{}, err
	}
	if dateOnly {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

// ValidateSearchQuery rejects empty or all-whitespace queries.
// The query is returned with surrounding whitespace removed.
func ValidateSearchQuery(query string) (string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", fmt.Errorf("%w: query cannot be empty", ErrInvalidQuery)
	}
	return trimmed, nil
}

// ValidateLimit checks a result limit against the default upper bound.
func ValidateLimit(limit int) (int, error) {
	return (*Validator)(nil).ValidateLimit(limit)
}

// ValidateLimit accepts 1..MaxLimit.
func (v *Validator) ValidateLimit(limit int) (int, error) {
	maxLimit := v.maxLimit()
	if limit < 1 || limit > maxLimit {
		return 0, fmt.Errorf("%w: must be between 1 and %d, got %d", ErrInvalidLimit, maxLimit, limit)
	}
	return limit, nil
}

// IsValidationError reports whether err is a rejected-input error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidTitle) ||
		errors.Is(err, ErrInvalidContent) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidQuery) ||
		errors.Is(err, ErrInvalidLimit)
}

// parseISO parses the accepted ISO-8601 forms. A space may separate date and time.
func parseISO(date string) (time.Time, bool, error) {
	s := strings.TrimSpace(date)
	if s == "" {
		return time.Time{}, false, fmt.Errorf("%w: date cannot be empty", ErrInvalidDate)
	}
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}

	for _, l := range isoLayouts {
		t, err := time.ParseInLocation(l.layout, s, time.UTC)
		if err == nil {
			return t, l.dateOnly, nil
		}
	}

	return time.Time{}, false, fmt.Errorf("%w: %q is not an ISO-8601 date", ErrInvalidDate, date)
}
