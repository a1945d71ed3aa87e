package websocket

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/luciancaetano/stompnet"
	"github.com/luciancaetano/stompnet/internal/endpoint"
	"github.com/luciancaetano/stompnet/internal/observability"
	"github.com/luciancaetano/stompnet/internal/protocol"
)

const defaultHandshakeTimeout = 10 * time.Second

// DialOptions configures an outgoing connection. The zero value is usable.
type DialOptions struct {
	// TLSConfig is used for the wss handshake. Nil means the system roots.
	TLSConfig *tls.Config
	// Header is sent with the upgrade request.
	Header http.Header
	// Subprotocols requested from the server. Nil means stompnet.Subprotocols().
	Subprotocols []string
	// HandshakeTimeout defaults to 10 seconds.
	HandshakeTimeout time.Duration
	// MaxMessageSize bounds one inbound frame. Zero means stompnet.DefaultMaxMessageSize.
	MaxMessageSize int64
	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// Conn implements stompnet.Conn over a gorilla connection.
type Conn struct {
	conn      *websocket.Conn
	endpoint  endpoint.Endpoint
	writeMu   sync.Mutex
	readMu    sync.Mutex
	closeOnce sync.Once
	closeErr  error
	logger    zerolog.Logger
}

// Dial opens a STOMP-over-WebSocket connection to ep.
func Dial(ctx context.Context, ep endpoint.Endpoint, opts *DialOptions) (*Conn, error) {
	if opts == nil {
		opts = &DialOptions{}
	}
	subprotocols := opts.Subprotocols
	if subprotocols == nil {
		subprotocols = stompnet.Subprotocols()
	}
	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	maxMessageSize := opts.MaxMessageSize
	if maxMessageSize <= 0 {
		maxMessageSize = stompnet.DefaultMaxMessageSize
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		TLSClientConfig:  opts.TLSConfig,
		Subprotocols:     subprotocols,
		HandshakeTimeout: timeout,
	}

	logger := observability.LoggerOrDefault(opts.Logger).With().Str("component", "stomp-conn").Str("endpoint", ep.String()).Logger()

	conn, resp, err := dialer.DialContext(ctx, ep.String(), opts.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%s: %s: %w", stompnet.ErrFailedToDial, resp.Status, err)
		}
		return nil, fmt.Errorf("%s: %w", stompnet.ErrFailedToDial, err)
	}
	conn.SetReadLimit(maxMessageSize)

	logger.Debug().Str("subprotocol", conn.Subprotocol()).Msg("connected")

	return &Conn{
		conn:     conn,
		endpoint: ep,
		logger:   logger,
	}, nil
}

// Endpoint returns the address the connection was dialed to.
func (c *Conn) Endpoint() endpoint.Endpoint {
	return c.endpoint
}

// Subprotocol returns the STOMP subprotocol the server selected.
func (c *Conn) Subprotocol() string {
	return c.conn.Subprotocol()
}

// Send encodes the frame and writes it as a single message.
func (c *Conn) Send(ctx context.Context, frame protocol.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data := protocol.Encode(frame)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(messageType(data), data); err != nil {
		return err
	}
	observability.RecordFrame(observability.DirectionOut, frame.Command())
	return nil
}

// Receive returns the next frame from the server.
func (c *Conn) Receive(ctx context.Context) (protocol.Frame, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if d, ok := ctx.Deadline(); ok {
		c.conn.SetReadDeadline(d)
	} else {
		c.conn.SetReadDeadline(time.Time{})
	}
	// Unblock ReadMessage on cancellation. gorilla connections are not
	// readable after a read error, so a cancelled Receive ends the stream.
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return protocol.Frame{}, ctxErr
			}
			return protocol.Frame{}, err
		}
		if protocol.IsHeartbeat(data) {
			continue
		}

		frame, err := protocol.Decode(data)
		if err != nil {
			observability.RecordCodecError(err)
			c.logger.Warn().Err(err).Str("kind", protocol.Kind(err)).Msg("rejected frame")
			c.closeWith(websocket.CloseProtocolError, stompnet.ErrInvalidMessageFormat+": "+err.Error())
			return protocol.Frame{}, fmt.Errorf("%s: %w", stompnet.ErrFailedToDecode, err)
		}
		observability.RecordFrame(observability.DirectionIn, frame.Command())
		return frame, nil
	}
}

// Close sends a normal close message and closes the connection.
func (c *Conn) Close(ctx context.Context) error {
	c.closeWith(websocket.CloseNormalClosure, "")
	return c.closeErr
}

func (c *Conn) closeWith(code int, reason string) {
	c.closeOnce.Do(func() {
		message := websocket.FormatCloseMessage(code, closeReason(reason))
		if err := c.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second)); err != nil {
			c.logger.Debug().Err(err).Msg("close message not delivered")
		}
		c.closeErr = c.conn.Close()
	})
}
