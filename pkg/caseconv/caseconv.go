// Package caseconv deep-converts the keys of decoded message payloads
// between snake_case and camelCase. Keys beginning with "@" are
// protobuf type markers (e.g. "@type") and are never renamed.
package caseconv

import (
	"strings"
	"unicode"
)

// Mode selects the target key casing.
type Mode string

const (
	Snake Mode = "snake"
	Camel Mode = "camel"
)

// Convert walks v (the result of unmarshalling arbitrary JSON into
// any) and returns a new value with every map key converted to mode,
// except keys starting with "@". Non-map, non-slice values pass
// through unchanged.
func Convert(v any, mode Mode) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			newKey := k
			if !strings.HasPrefix(k, "@") {
				newKey = convertKey(k, mode)
			}
			out[newKey] = Convert(inner, mode)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = Convert(inner, mode)
		}
		return out
	default:
		return val
	}
}

func convertKey(k string, mode Mode) string {
	switch mode {
	case Camel:
		return toCamel(k)
	default:
		return toSnake(k)
	}
}

// toSnake converts a camelCase or PascalCase key to snake_case. Keys
// already in snake_case pass through unchanged.
func toSnake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (runes[i-1] != '_') {
				prevIsUpper := unicode.IsUpper(runes[i-1])
				nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if !prevIsUpper || nextIsLower {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// toCamel converts a snake_case or PascalCase key to camelCase. Keys
// already in camelCase pass through unchanged.
func toCamel(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		r := []rune(p)
		if i == 0 {
			b.WriteRune(unicode.ToLower(r[0]))
			b.WriteString(string(r[1:]))
			continue
		}
		b.WriteRune(unicode.ToUpper(r[0]))
		b.WriteString(string(r[1:]))
	}
	return b.String()
}
