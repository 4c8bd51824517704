package application

import (
	"encoding/json"
	"strings"
)

// embeddedArray returns the leftmost balanced [...] span of text that is
// valid JSON, or "".
func embeddedArray(text string) string {
	for start := strings.IndexByte(text, '['); start != -1; {
		if end := closingBracket(text, start); end != -1 {
			if span := text[start : end+1]; json.Valid([]byte(span)) {
				return span
			}
		}
		next := strings.IndexByte(text[start+1:], '[')
		if next == -1 {
			break
		}
		start += next + 1
	}
	return ""
}

// closingBracket returns the index of the ']' balancing the '[' at start,
// skipping brackets inside JSON strings, or -1.
func closingBracket(text string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// extractJSONPayload strips markdown fences and surrounding prose, keeping
// the span from the first JSON opening bracket to the matching last
// closing bracket of the same kind.
func extractJSONPayload(text string) string {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	if clean == "" {
		return clean
	}

	startArray := strings.Index(clean, "[")
	startObject := strings.Index(clean, "{")
	start := -1
	if startArray == -1 {
		start = startObject
	} else if startObject == -1 || startArray < startObject {
		start = startArray
	} else {
		start = startObject
	}
	if start == -1 {
		return clean
	}

	closer := "}"
	if clean[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(clean, closer)
	if end < start {
		return clean
	}

	return clean[start : end+1]
}
