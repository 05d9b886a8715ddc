package loader

import (
	"fmt"
	"strconv"
	"strings"
)

// parseRate accepts "0.53", "53", "53%" or "1,053" style cells and returns a
// fraction. Anything above 1 is read as a percentage.
func parseRate(s string) (float64, error) {
	v := strings.TrimSpace(s)
	v = strings.ReplaceAll(v, "%", "")
	v = strings.ReplaceAll(v, ",", "")
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, fmt.Errorf("missing value")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return normalizeRate(f), nil
}

func normalizeRate(f float64) float64 {
	if f > 1 {
		return f / 100
	}
	return f
}

// parseCount reads a game count; blanks are 0 and fractions truncate
func parseCount(s string) (int, error) {
	v := strings.ReplaceAll(s, ",", "")
	v = strings.Join(strings.Fields(v), "")
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("not a count: %q", s)
	}
	return int(f), nil
}

// splitItems splits a pipe- or comma-separated set cell
func splitItems(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '|' || r == ',' || r == '，'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// normalizeHeader lowercases and trims a header cell, dropping a UTF-8 BOM
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.TrimSpace(h))
}
