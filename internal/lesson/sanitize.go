package lesson

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// mojibakeBOM is a UTF-8 byte order mark that was decoded as Latin-1 somewhere
// upstream and re-encoded.
const mojibakeBOM = "\u00EF\u00BB\u00BF"

var (
	blockBreak = regexp.MustCompile(`(?i)<\s*(br\s*/?|/p|/div|/h[1-6]|/li|/tr)\s*>`)
	listItem   = regexp.MustCompile(`(?i)<\s*li[^>]*>`)
	blankRuns  = regexp.MustCompile(`\n{3,}`)
	stripTags  = bluemonday.StrictPolicy()
)

// SanitizeText removes byte order marks, control characters other than tab,
// newline and carriage return, invalid encodings, zero-width characters and
// the noncharacters U+FFFE/U+FFFF, then trims surrounding whitespace.
func SanitizeText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")
	s = strings.TrimPrefix(s, mojibakeBOM)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\t', r == '\n', r == '\r':
			return r
		case r < 0x20, r == 0x7F:
			return -1
		case r == 0xFEFF, r >= 0x200B && r <= 0x200D:
			return -1
		case r == 0xFFFE, r == 0xFFFF:
			return -1
		case r >= 0xD800 && r <= 0xDFFF, r == utf8.RuneError:
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// HTMLToText reduces an HTML fragment to readable terminal text. Block
// closers become line breaks, list items get a bullet and every tag is
// dropped.
func HTMLToText(fragment string) string {
	fragment = SanitizeText(fragment)
	if fragment == "" {
		return ""
	}
	fragment = listItem.ReplaceAllString(fragment, "\n• ")
	fragment = blockBreak.ReplaceAllString(fragment, "\n")
	text := html.UnescapeString(stripTags.Sanitize(fragment))
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	text = blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}
