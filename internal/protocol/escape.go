package protocol

import (
	"strings"
)

const (
	escapeChar = '\\'
	headerSep  = ':'
)

// escapeHeader replaces backslash, CR, LF and the header separator with
// their two-character escape sequences.
func escapeHeader(s string) string {
	if !strings.ContainsAny(s, "\\\r\n:") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case escapeChar:
			b.WriteString(`\\`)
		case '\r':
			b.WriteString(`\r`)
		case '\n':
			b.WriteString(`\n`)
		case headerSep:
			b.WriteString(`\c`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// unescapeHeader reverses escapeHeader. A backslash followed by anything
// other than r, n, c or another backslash, or a trailing backslash, is a
// syntax error carrying the original text.
func unescapeHeader(s string) (string, error) {
	if strings.IndexByte(s, escapeChar) < 0 {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != escapeChar {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(s) {
			return "", &SyntaxError{Reason: "incomplete escape sequence", Fragment: s}
		}
		i++
		switch s[i] {
		case escapeChar:
			b.WriteByte(escapeChar)
		case 'r':
			b.WriteByte('\r')
		case 'n':
			b.WriteByte('\n')
		case 'c':
			b.WriteByte(headerSep)
		default:
			return "", &SyntaxError{Reason: "invalid escape sequence", Fragment: s}
		}
	}
	return b.String(), nil
}

func lossy(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
