package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "simple", title: "Test Chat", want: "test-chat"},
		{name: "punctuation dropped", title: "Hello, World!", want: "hello-world"},
		{name: "whitespace and hyphen runs collapse", title: "Hello,   World -- 2", want: "hello-world-2"},
		{name: "leading and trailing separators trimmed", title: "  -- draft --  ", want: "draft"},
		{name: "traversal characters dropped", title: "../../etc/passwd", want: "etcpasswd"},
		{name: "windows separators dropped", title: `..\..\boot.ini`, want: "bootini"},
		{name: "reserved characters dropped", title: `a<b>c:d"e|f?g*h`, want: "abcdefgh"},
		{name: "underscores kept", title: "snake_case title", want: "snake_case-title"},
		{name: "unicode letters kept", title: "Café Überblick", want: "café-überblick"},
		{name: "nul byte dropped", title: "a\x00b", want: "ab"},
		{name: "nothing allowed", title: "!!!", want: FallbackSlug},
		{name: "empty", title: "", want: FallbackSlug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.title, DefaultSlugMaxLength))
		})
	}
}

func TestSlug_NormalizesUnicode(t *testing.T) {
	decomposed := "Cafe\u0301"
	composed := "Caf\u00e9"
	assert.Equal(t, "caf\u00e9", Slug(decomposed, 0))
	assert.Equal(t, Slug(composed, 0), Slug(decomposed, 0))
}

func TestSlug_Truncates(t *testing.T) {
	long := strings.Repeat("word ", 30)
	got := Slug(long, DefaultSlugMaxLength)

	assert.LessOrEqual(t, utf8.RuneCountInString(got), DefaultSlugMaxLength)
	assert.False(t, strings.HasSuffix(got, "-"), "truncation must not leave a trailing hyphen")
	assert.True(t, strings.HasPrefix(got, "word-word"))

	assert.Equal(t, "abc", Slug("abcdef", 3))
	assert.Equal(t, "ééé", Slug("éééééé", 3), "truncation counts runes")
}

func TestSlug_DefaultLength(t *testing.T) {
	got := Slug(strings.Repeat("a", 80), 0)
	assert.Equal(t, DefaultSlugMaxLength, utf8.RuneCountInString(got))
}
