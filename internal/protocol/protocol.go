package protocol

import (
	"bytes"
	"slices"
	"strconv"
	"unicode/utf8"
)

// Encode serializes a frame:
//
//	COMMAND LF (key ":" value LF)* LF body NUL
//
// Header keys are written in ascending order. Keys and values are escaped
// unless the command is CONNECT or CONNECTED. The body is written verbatim.
func Encode(f Frame) []byte {
	escape := escapeHeader
	if !f.command.EscapesHeaders() {
		escape = func(s string) string { return s }
	}

	keys := make([]string, 0, len(f.headers))
	size := len(f.command.String()) + len(f.body) + 3
	for k, v := range f.headers {
		keys = append(keys, k)
		size += len(k) + len(v) + 2
	}
	slices.Sort(keys)

	var buf bytes.Buffer
	buf.Grow(size)
	buf.WriteString(f.command.String())
	buf.WriteByte('\n')
	for _, k := range keys {
		buf.WriteString(escape(k))
		buf.WriteByte(headerSep)
		buf.WriteString(escape(f.headers[k]))
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.Write(f.body)
	buf.WriteByte(0)
	return buf.Bytes()
}

// Decode parses exactly one frame from the start of data. Bytes following
// the frame terminator and its trailing line endings are ignored.
func Decode(data []byte) (Frame, error) {
	f, _, err := DecodeNext(data)
	return f, err
}

// DecodeNext parses one frame from the start of data and returns the bytes
// left after the frame terminator and any line endings that follow it.
//
// The returned body is a copy; data may be reused after the call.
func DecodeNext(data []byte) (Frame, []byte, error) {
	p := parser{in: data}

	cmd, err := p.command()
	if err != nil {
		return Frame{}, nil, err
	}

	var raw [][2][]byte
	for {
		key, value, ok := p.header()
		if !ok {
			break
		}
		raw = append(raw, [2][]byte{key, value})
	}
	if !p.lineEnding() {
		return Frame{}, nil, syntaxError("expected end of headers", p.rest())
	}

	headers, err := collectHeaders(cmd, raw)
	if err != nil {
		return Frame{}, nil, err
	}

	var body []byte
	if cl, ok := headers[HeaderContentLength]; ok {
		n, err := parseContentLength(cl)
		if err != nil {
			return Frame{}, nil, &HeaderValueError{Name: HeaderContentLength, Value: cl, Err: err}
		}
		if body, ok = p.take(n); !ok {
			return Frame{}, nil, syntaxError("body shorter than content-length", p.rest())
		}
	} else {
		body = p.takeUntil(0)
	}

	if !p.expect(0) {
		return Frame{}, nil, syntaxError("expected frame terminator", p.rest())
	}
	for p.lineEnding() {
	}

	f, err := NewFrame(cmd, headers, body)
	if err != nil {
		return Frame{}, nil, err
	}
	return f, p.rest(), nil
}

// IsHeartbeat reports whether data is a non-empty run of line endings,
// which STOMP peers send as heart-beats between frames.
func IsHeartbeat(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	p := parser{in: data}
	for p.lineEnding() {
	}
	return len(p.rest()) == 0
}

// collectHeaders validates, unescapes and inserts header pairs. The first
// occurrence of a key wins; later duplicates are dropped.
func collectHeaders(cmd Command, raw [][2][]byte) (map[string]string, error) {
	headers := make(map[string]string, len(raw))
	for _, pair := range raw {
		key, err := decodeHeader(cmd, pair[0])
		if err != nil {
			return nil, err
		}
		value, err := decodeHeader(cmd, pair[1])
		if err != nil {
			return nil, err
		}
		if _, exists := headers[key]; !exists {
			headers[key] = value
		}
	}
	return headers, nil
}

func decodeHeader(cmd Command, raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", &EncodingError{Offset: invalidUTF8Offset(raw), Err: ErrInvalidUTF8}
	}
	if !cmd.EscapesHeaders() {
		return string(raw), nil
	}
	return unescapeHeader(string(raw))
}

func invalidUTF8Offset(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(b)
}

// parseContentLength accepts only ASCII decimal digits.
func parseContentLength(s string) (int, error) {
	if s == "" || s[0] < '0' || s[0] > '9' {
		return 0, strconv.ErrSyntax
	}
	n, err := strconv.ParseUint(s, 10, strconv.IntSize-1)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
