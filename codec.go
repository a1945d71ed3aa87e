package stompnet

import (
	"github.com/luciancaetano/stompnet/internal/endpoint"
	"github.com/luciancaetano/stompnet/internal/protocol"
)

// Frame is one STOMP message. See protocol.Frame.
type Frame = protocol.Frame

// Command is a STOMP frame verb.
type Command = protocol.Command

// Endpoint is a validated wss:// address.
type Endpoint = endpoint.Endpoint

// Codec error types.
type (
	SyntaxError      = protocol.SyntaxError
	EncodingError    = protocol.EncodingError
	HeaderValueError = protocol.HeaderValueError
)

const (
	Connected   = protocol.Connected
	Message     = protocol.Message
	Receipt     = protocol.Receipt
	Error       = protocol.Error
	Send        = protocol.Send
	Unsubscribe = protocol.Unsubscribe
	Subscribe   = protocol.Subscribe
	Begin       = protocol.Begin
	Commit      = protocol.Commit
	Abort       = protocol.Abort
	Nack        = protocol.Nack
	Ack         = protocol.Ack
	Disconnect  = protocol.Disconnect
	Connect     = protocol.Connect
	Stomp       = protocol.Stomp
)

var (
	ErrSyntax      = protocol.ErrSyntax
	ErrEncoding    = protocol.ErrEncoding
	ErrHeaderValue = protocol.ErrHeaderValue
	ErrInvalidUTF8 = protocol.ErrInvalidUTF8

	ErrInvalidURL    = endpoint.ErrInvalidURL
	ErrInvalidScheme = endpoint.ErrInvalidScheme
	ErrHasFragment   = endpoint.ErrHasFragment
)

// NewFrame validates and builds a frame. A non-empty body on a command
// other than SEND, MESSAGE or ERROR fails with a *SyntaxError.
func NewFrame(command Command, headers map[string]string, body []byte) (Frame, error) {
	return protocol.NewFrame(command, headers, body)
}

// ParseCommand resolves a wire token such as "SEND".
func ParseCommand(token string) (Command, bool) {
	return protocol.ParseCommand(token)
}

// Encode serializes a frame to its wire form. It never fails.
func Encode(f Frame) []byte {
	return protocol.Encode(f)
}

// Decode parses one frame from the start of data.
func Decode(data []byte) (Frame, error) {
	return protocol.Decode(data)
}

// DecodeNext parses one frame and returns the bytes that follow it.
func DecodeNext(data []byte) (Frame, []byte, error) {
	return protocol.DecodeNext(data)
}

// ParseEndpoint validates a wss:// server address.
func ParseEndpoint(raw string) (Endpoint, error) {
	return endpoint.Parse(raw)
}
