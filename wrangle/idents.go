package wrangle

import (
	"strings"
	"unicode"
)

func makeIdentUnderscores(inp string) string {
	var b strings.Builder
	for i, r := range inp {
		switch {
		case unicode.IsDigit(r):
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		case unicode.IsLetter(r):
			b.WriteString(strings.ToLower(string(r)))
		case r == '\'':
			b.WriteString("_p")
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// makeIdentConst builds an upper-case constant identifier, collapsing runs
// of separators so that "imm[12|10:5]" becomes "IMM_12_10_5".
func makeIdentConst(parts ...string) string {
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		raw := strings.ToUpper(makeIdentUnderscores(part))
		raw = strings.Trim(raw, "_")
		for strings.Contains(raw, "__") {
			raw = strings.ReplaceAll(raw, "__", "_")
		}
		if raw == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('_')
		}
		b.WriteString(raw)
	}
	return b.String()
}

func makeIdentTitle(inp string) string {
	var b strings.Builder
	nextUpper := true
	for i, r := range inp {
		switch {
		case unicode.IsDigit(r):
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			nextUpper = true
		case unicode.IsLetter(r):
			if nextUpper {
				b.WriteString(strings.ToUpper(string(r)))
			} else {
				b.WriteString(strings.ToLower(string(r)))
			}
			nextUpper = false
		default:
			nextUpper = true
		}
	}
	return b.String()
}
