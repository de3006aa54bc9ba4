package workflow

import (
	"regexp"
	"strings"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	excessNewlines  = regexp.MustCompile(`\n{3,}`)
)

// Formatter finalizes raw handler text into the customer-facing response.
// Format is idempotent.
type Formatter struct {
	SignOff  string
	Fallback string
}

// Format normalizes whitespace, substitutes Fallback for empty text,
// and appends SignOff unless the text already ends with it.
func (f Formatter) Format(text string) string {
	body := normalizeWhitespace(text)
	if body == "" {
		body = normalizeWhitespace(f.Fallback)
	}

	signOff := normalizeWhitespace(f.SignOff)
	if signOff == "" || strings.HasSuffix(body, signOff) {
		return body
	}
	if body == "" {
		return signOff
	}
	return body + "\n\n" + signOff
}

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalSpace.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = excessNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
