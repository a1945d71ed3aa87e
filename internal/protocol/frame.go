package protocol

import (
	"bytes"
	"fmt"
	"maps"
)

// Reserved header names.
const (
	HeaderContentLength = "content-length"
	HeaderDestination   = "destination"
	HeaderReceipt       = "receipt"
)

// Frame is one STOMP message: a command, its headers and an optional body.
//
// A Frame can only be obtained from NewFrame or Decode, so every Frame
// satisfies the body/command invariant. Frames are immutable.
type Frame struct {
	command Command
	headers map[string]string
	body    []byte
}

// NewFrame validates and builds a frame. An empty body is treated as no body.
// A non-empty body on a command that may not carry one is a syntax error.
//
// The header map and body are copied; later changes by the caller do not
// affect the frame.
func NewFrame(command Command, headers map[string]string, body []byte) (Frame, error) {
	if !command.Valid() {
		return Frame{}, &SyntaxError{Reason: "unknown command", Fragment: command.String()}
	}
	if len(body) > 0 && !command.MayHaveBody() {
		return Frame{}, &SyntaxError{
			Reason:   fmt.Sprintf("frame type %s must not have a body", command),
			Fragment: command.String(),
		}
	}

	f := Frame{command: command, headers: make(map[string]string, len(headers))}
	maps.Copy(f.headers, headers)
	if len(body) > 0 {
		f.body = bytes.Clone(body)
	}
	return f, nil
}

// Command returns the frame's command.
func (f Frame) Command() Command {
	return f.command
}

// Header returns the value of the named header.
func (f Frame) Header(name string) (string, bool) {
	v, ok := f.headers[name]
	return v, ok
}

// Headers returns a copy of the frame's headers.
func (f Frame) Headers() map[string]string {
	return maps.Clone(f.headers)
}

// Body returns the frame body, or nil when the frame has none.
// The returned slice is shared with the frame and must not be modified.
func (f Frame) Body() []byte {
	return f.body
}

// HasBody reports whether the frame carries a body.
func (f Frame) HasBody() bool {
	return f.body != nil
}

// Equal reports whether both frames have the same command, headers and body.
func (f Frame) Equal(other Frame) bool {
	return f.command == other.command &&
		maps.Equal(f.headers, other.headers) &&
		bytes.Equal(f.body, other.body) &&
		f.HasBody() == other.HasBody()
}

func (f Frame) String() string {
	return fmt.Sprintf("{Command: %s, Headers: %v, Body: %d bytes}", f.command, f.headers, len(f.body))
}
