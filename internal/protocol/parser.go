package protocol

import "bytes"

// parser is a cursor over one input buffer. Each recognizer either consumes
// what it matched and reports success, or leaves the cursor untouched.
type parser struct {
	in  []byte
	pos int
}

func (p *parser) rest() []byte {
	return p.in[p.pos:]
}

// lineEnding matches LF or CR LF.
func (p *parser) lineEnding() bool {
	rest := p.rest()
	switch {
	case len(rest) >= 1 && rest[0] == '\n':
		p.pos++
		return true
	case len(rest) >= 2 && rest[0] == '\r' && rest[1] == '\n':
		p.pos += 2
		return true
	default:
		return false
	}
}

// expect matches a single byte.
func (p *parser) expect(c byte) bool {
	rest := p.rest()
	if len(rest) == 0 || rest[0] != c {
		return false
	}
	p.pos++
	return true
}

// take matches exactly n bytes of any value.
func (p *parser) take(n int) ([]byte, bool) {
	rest := p.rest()
	if n > len(rest) {
		return nil, false
	}
	p.pos += n
	return rest[:n], true
}

// takeUntil matches the longest run of bytes not equal to c.
func (p *parser) takeUntil(c byte) []byte {
	rest := p.rest()
	n := bytes.IndexByte(rest, c)
	if n < 0 {
		n = len(rest)
	}
	p.pos += n
	return rest[:n]
}

// takeHeaderOctets matches the longest run of bytes other than CR, LF and
// the header separator.
func (p *parser) takeHeaderOctets() []byte {
	rest := p.rest()
	n := 0
	for n < len(rest) && isHeaderOctet(rest[n]) {
		n++
	}
	p.pos += n
	return rest[:n]
}

// command matches a known command token followed by a line ending.
func (p *parser) command() (Command, error) {
	start := p.pos
	rest := p.rest()
	n := bytes.IndexAny(rest, "\r\n")
	if n < 0 {
		n = len(rest)
	}
	cmd, ok := ParseCommand(string(rest[:n]))
	if !ok {
		return 0, syntaxError("unknown command", rest)
	}
	p.pos += n
	if !p.lineEnding() {
		p.pos = start
		return 0, syntaxError("expected line ending after command", p.in[start+n:])
	}
	return cmd, nil
}

// header matches one `key ":" value` line. The key must be non-empty.
func (p *parser) header() (key, value []byte, ok bool) {
	start := p.pos
	key = p.takeHeaderOctets()
	if len(key) == 0 || !p.expect(headerSep) {
		p.pos = start
		return nil, nil, false
	}
	value = p.takeHeaderOctets()
	if !p.lineEnding() {
		p.pos = start
		return nil, nil, false
	}
	return key, value, true
}

func isHeaderOctet(c byte) bool {
	return c != '\r' && c != '\n' && c != headerSep
}
