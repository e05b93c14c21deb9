// Package llmjson recovers a JSON object from free-form model output.
//
// Models wrap JSON in markdown fences, prepend prose ("Here you go:") and
// leave trailing commas. Extract strips the fencing, isolates the outermost
// object and retries once with a trailing-comma repair before giving up.
package llmjson

import (
	"encoding/json"
	"strings"
)

const fence = "```"

// Extract returns the JSON object embedded in raw. Any failure is reported
// as a *MalformedResponseError matching ErrMalformedResponse.
func Extract(raw string) (map[string]any, error) {
	var out map[string]any
	if err := ExtractInto(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, malformed(raw, errNotObject)
	}
	return out, nil
}

// ExtractInto decodes the JSON object embedded in raw into out.
func ExtractInto(raw string, out any) error {
	candidate, ok := objectSpan(stripFences(raw))
	if !ok {
		return malformed(raw, errNoObject)
	}
	err := json.Unmarshal([]byte(candidate), out)
	if err == nil {
		return nil
	}
	if retryErr := json.Unmarshal([]byte(RemoveTrailingCommas(candidate)), out); retryErr != nil {
		return malformed(raw, retryErr)
	}
	return nil
}

// stripFences returns the text between the first and the last fence marker.
// A lone or unbalanced fence is trimmed as a literal prefix/suffix instead.
// Nested fenced blocks are not unpicked: the first...last span is used as is.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	first := strings.Index(text, fence)
	if first < 0 {
		return text
	}
	last := strings.LastIndex(text, fence)
	if last > first {
		inner := text[first+len(fence) : last]
		return strings.TrimSpace(trimLanguageTag(inner))
	}
	text = strings.TrimPrefix(text, fence+"json")
	text = strings.TrimPrefix(text, fence)
	text = strings.TrimSuffix(text, fence)
	return strings.TrimSpace(text)
}

func trimLanguageTag(s string) string {
	if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		return s[4:]
	}
	return s
}

// objectSpan returns text from the first '{' to the last '}' inclusive.
func objectSpan(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// RemoveTrailingCommas drops commas that directly precede a closing ']' or
// '}' (ignoring whitespace). Commas inside string literals are kept.
func RemoveTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
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
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' && closesNext(s, i+1) {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func closesNext(s string, from int) bool {
	for j := from; j < len(s); j++ {
		switch s[j] {
		case ' ', '\t', '\n', '\r':
			continue
		case ']', '}':
			return true
		default:
			return false
		}
	}
	return false
}
