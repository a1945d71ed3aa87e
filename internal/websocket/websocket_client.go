package websocket

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/stompnet"
	"github.com/luciancaetano/stompnet/internal/observability"
	"github.com/luciancaetano/stompnet/internal/protocol"
)

const (
	sendBufferSize = 256
	pingPeriod     = 54 * time.Second
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second

	// maxCloseReasonLen is the room left for a reason in a close frame
	// after the two-byte status code.
	maxCloseReasonLen = 123
)

// Client implements the stompnet.Client interface for one upgraded peer.
type Client struct {
	id          string
	conn        *websocket.Conn
	remoteAddr  string
	ctx         context.Context
	cancel      context.CancelFunc
	sendCh      chan []byte
	mu          sync.RWMutex
	closed      bool
	rateLimiter *rate.Limiter // Rate limiter for incoming frames
	logger      zerolog.Logger
}

// NewClient wraps an upgraded connection and starts its write pump.
func NewClient(conn *websocket.Conn, remoteAddr string, rateLimitConfig *RateLimitConfig, logger zerolog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	var limiter *rate.Limiter
	if rateLimitConfig != nil && rateLimitConfig.Enabled {
		limiter = rate.NewLimiter(rateLimitConfig.MessagesPerSecond, rateLimitConfig.Burst)
	}

	id := uuid.New().String()
	client := &Client{
		id:          id,
		conn:        conn,
		remoteAddr:  remoteAddr,
		ctx:         ctx,
		cancel:      cancel,
		sendCh:      make(chan []byte, sendBufferSize),
		closed:      false,
		rateLimiter: limiter,
		logger:      logger.With().Str("client_id", id).Str("remote_addr", remoteAddr).Logger(),
	}

	go client.writePump()

	return client
}

// ID returns a unique identifier for the connected client
func (c *Client) ID() string {
	return c.id
}

// RemoteAddr returns the client's remote network address
func (c *Client) RemoteAddr() string {
	return c.remoteAddr
}

// Context returns the client's lifecycle context
func (c *Client) Context() context.Context {
	return c.ctx
}

// Subprotocol returns the negotiated STOMP subprotocol
func (c *Client) Subprotocol() string {
	return c.conn.Subprotocol()
}

// Send encodes a frame and queues it for the write pump
func (c *Client) Send(ctx context.Context, frame protocol.Frame) error {
	// Encode before taking the lock
	data := protocol.Encode(frame)

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return fmt.Errorf(stompnet.ErrConnectionClosed)
	}

	// Keep the lock while sending to prevent race with Close()
	select {
	case c.sendCh <- data:
		c.mu.RUnlock()
		observability.RecordFrame(observability.DirectionOut, frame.Command())
		return nil
	case <-ctx.Done():
		c.mu.RUnlock()
		return ctx.Err()
	case <-c.ctx.Done():
		c.mu.RUnlock()
		return fmt.Errorf(stompnet.ErrContextCancelled)
	}
}

// Close closes the client connection
func (c *Client) Close(ctx context.Context) error {
	return c.CloseWithCode(ctx, websocket.CloseNormalClosure, "")
}

// CloseWithCode closes the connection with a close code and optional reason
func (c *Client) CloseWithCode(ctx context.Context, code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true

	// The close message goes out before the write pump is stopped.
	message := websocket.FormatCloseMessage(code, closeReason(reason))
	deadline := time.Now().Add(time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.WriteControl(websocket.CloseMessage, message, deadline); err != nil {
		c.logger.Debug().Err(err).Msg("close message not delivered")
	}
	c.cancel()

	close(c.sendCh)
	return c.conn.Close()
}

// IsAlive returns true if the connection is still active
func (c *Client) IsAlive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

// CheckRateLimit reports whether another inbound frame is allowed
func (c *Client) CheckRateLimit(ctx context.Context) bool {
	if c.rateLimiter == nil {
		// Rate limiting disabled
		return true
	}
	return c.rateLimiter.Allow()
}

// writePump pumps encoded frames from the send channel to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(messageType(message), message); err != nil {
				c.logger.Error().Err(err).Msg("write frame failed")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// SetPongHandler sets the handler for pong messages
func (c *Client) SetPongHandler(handler func(appData string) error) {
	c.conn.SetPongHandler(handler)
}

// SetCloseHandler sets the handler for close messages
func (c *Client) SetCloseHandler(handler func(code int, text string) error) {
	c.conn.SetCloseHandler(handler)
}

// messageType picks a text message for valid UTF-8 and binary otherwise.
func messageType(data []byte) int {
	if utf8.Valid(data) {
		return websocket.TextMessage
	}
	return websocket.BinaryMessage
}

func closeReason(reason string) string {
	if len(reason) <= maxCloseReasonLen {
		return reason
	}
	return strings.ToValidUTF8(reason[:maxCloseReasonLen], "")
}
