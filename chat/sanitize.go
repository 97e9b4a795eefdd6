package chat

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	inlineSpace    = regexp.MustCompile(`[ \t]+`)
)

// sanitizeText prepares operator or page supplied text for a prompt: control
// and non-printable characters are dropped, runs of blank lines collapse to
// one and the result is capped at limit runes (0 means no cap).
func sanitizeText(s string, limit int) string {
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if r == '\r' || unicode.IsControl(r) || !unicode.IsPrint(r) {
			continue
		}
		b.WriteRune(r)
	}

	lines := strings.Split(excessNewlines.ReplaceAllString(b.String(), "\n\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(inlineSpace.ReplaceAllString(line, " "))
	}
	out := strings.TrimSpace(strings.Join(lines, "\n"))

	if limit > 0 {
		if r := []rune(out); len(r) > limit {
			out = string(r[:limit])
		}
	}
	return out
}
