package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParseFailed is returned when content holds no decodable JSON value.
var ErrParseFailed = errors.New("failed to parse response")

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// Parse decodes model output into T. It tries, in order: the whole
// content, the body of the first markdown code fence, and the span from
// the first '{' to the last '}'.
func Parse[T any](content string) (T, error) {
	var result T
	content = strings.TrimSpace(content)

	for _, candidate := range candidates(content) {
		if err := json.Unmarshal([]byte(candidate), &result); err == nil {
			return result, nil
		}
		result = *new(T)
	}

	return result, fmt.Errorf("%w: %s", ErrParseFailed, content)
}

func candidates(content string) []string {
	out := []string{content}

	if m := fencePattern.FindStringSubmatch(content); len(m) >= 2 {
		out = append(out, strings.TrimSpace(m[1]))
	}

	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start >= 0 && end > start {
		out = append(out, content[start:end+1])
	}

	return out
}
