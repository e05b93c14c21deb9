package sanitize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// mapSlice applies fn to every object element of v in order. Non-array input
// yields an empty, non-nil slice; non-object elements are skipped.
func mapSlice[T any](v any, fn func(map[string]any) T) []T {
	items, ok := v.([]any)
	if !ok {
		return []T{}
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, fn(m))
	}
	return out
}

func str(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

func strOr(v any, fallback string) string {
	if s := str(v); s != "" {
		return s
	}
	return fallback
}

// stringList keeps scalar elements in order and drops empty ones.
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := str(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func number(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(n), "%"), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	// NaN and infinities cannot be encoded as JSON.
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func numberOr(v any, fallback float64) float64 {
	if n := number(v); n != nil {
		return *n
	}
	return fallback
}

// secondsOf prefers an explicit numeric value and falls back to parsing a
// clock label such as "1:05", "01:02:03" or "[12:30]".
func secondsOf(explicit, label any) *float64 {
	if n := number(explicit); n != nil && *n >= 0 {
		return n
	}
	text, ok := label.(string)
	if !ok {
		return nil
	}
	return ParseClock(text)
}

// ParseClock converts "m:ss" or "h:mm:ss" into seconds.
func ParseClock(text string) *float64 {
	text = strings.Trim(strings.TrimSpace(text), "[]()")
	parts := strings.Split(text, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return nil
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return nil
		}
		total = total*60 + n
	}
	f := float64(total)
	return &f
}
