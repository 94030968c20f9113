package payload

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Reading is one decoded sensor sample. Value is kept exactly as it arrived
// on the wire (string or json.Number) so that byte-identical payloads decode
// byte-identically; numeric coercion is deferred to the layout stage.
type Reading struct {
	Tag      string    `json:"tag"`
	Value    any       `json:"value"`
	Unit     string    `json:"unit"`
	Position *Position `json:"position,omitempty"`
	IsColor  bool      `json:"is_color,omitempty"`
}

// Position is the pixel placement carried by matrix-dialect readings.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ValueString renders a reading value for display. Numbers keep their wire
// literal, strings pass through, anything else renders empty.
func ValueString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	default:
		return ""
	}
}

// CoerceInt converts a reading value to an integer, returning fallback when
// no leading integer can be parsed. Coercion policy lives here so that every
// layout has one rule: leading digits win ("72.5F" is 72), everything else
// is the fallback.
func CoerceInt(v any, fallback int) int {
	switch n := v.(type) {
	case nil:
		return fallback
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		return leadingInt(n.String(), fallback)
	case string:
		return leadingInt(n, fallback)
	default:
		return fallback
	}
}

// CoerceFloat converts a reading value to a float64, returning fallback on
// anything non-numeric. Used by history sampling and chart previews.
func CoerceFloat(v any, fallback float64) float64 {
	switch n := v.(type) {
	case nil:
		return fallback
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return fallback
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return fallback
		}
		return f
	default:
		return fallback
	}
}

func leadingInt(s string, fallback int) int {
	s = strings.TrimSpace(s)
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	j := i
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j == i {
		return fallback
	}
	n, err := strconv.Atoi(s[:j])
	if err != nil {
		return fallback
	}
	return n
}
