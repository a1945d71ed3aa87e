package stompnet

// STOMP WebSocket subprotocols, most preferred first.
const (
	SubprotocolV12 = "v12.stomp"
	SubprotocolV11 = "v11.stomp"
	SubprotocolV10 = "v10.stomp"
)

// Header names with meaning to higher layers. The codec treats all but
// content-length as opaque.
const (
	HeaderContentLength = "content-length"
	HeaderContentType   = "content-type"
	HeaderDestination   = "destination"
	HeaderReceipt       = "receipt"
	HeaderReceiptID     = "receipt-id"
	HeaderMessageID     = "message-id"
	HeaderMessage       = "message"
	HeaderVersion       = "version"
	HeaderAcceptVersion = "accept-version"
	HeaderHost          = "host"
)

// Standard error messages
const (
	// Protocol errors
	ErrInvalidMessageFormat = "invalid STOMP frame"
	ErrUnknownCommand       = "unknown command"

	// Connection errors
	ErrClientNotFound       = "client not found"
	ErrConnectionClosed     = "client connection is closed"
	ErrContextCancelled     = "client context cancelled"
	ErrFailedToDecode       = "failed to decode frame"
	ErrFailedToDial         = "failed to dial endpoint"
	ErrServerAlreadyRunning = "server already running"
)

// Default limits
const (
	// DefaultMaxMessageSize bounds a single inbound WebSocket message.
	DefaultMaxMessageSize int64 = 10 * 1024 * 1024
	// DefaultPath is the HTTP path the server upgrades on.
	DefaultPath = "/stomp"
)

// Subprotocols returns the supported STOMP subprotocols, most preferred first.
func Subprotocols() []string {
	return []string{SubprotocolV12, SubprotocolV11, SubprotocolV10}
}
