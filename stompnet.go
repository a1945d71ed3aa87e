package stompnet

import (
	"context"
	"net/http"
)

// FrameHandler processes one decoded frame received from a client.
type FrameHandler = func(client Client, frame Frame)

// WebsocketServer defines the interface for a STOMP-over-WebSocket server.
//
// Every WebSocket message a client sends is decoded as one STOMP frame and
// dispatched to the handler registered for its command.
//
// Example usage:
//
//	import "github.com/luciancaetano/stompnet/ws"
//
//	server := ws.New(ws.NewConfig(":61614", ws.DefaultRateLimitConfig(), ws.AllOrigins(), nil, nil))
//
//	server.RegisterHandler(ctx, stompnet.Send, func(client stompnet.Client, f stompnet.Frame) {
//	    reply, _ := stompnet.NewFrame(stompnet.Receipt, map[string]string{"receipt-id": "1"}, nil)
//	    client.Send(ctx, reply)
//	})
//
//	server.Start(ctx)
type WebsocketServer interface {
	// Start starts the server and begins listening for connections.
	// The server keeps running until Stop is called or the context is cancelled.
	//
	// Returns an error if the server is already running or if there's a problem
	// binding to the network address.
	Start(ctx context.Context) error

	// Stop gracefully stops the server and closes all client connections.
	Stop(ctx context.Context) error

	// Handler returns the HTTP handler that upgrades requests and serves
	// STOMP frames. Use it to mount the server on an existing mux or test server.
	Handler() http.Handler

	// RegisterHandler registers the handler for frames with the given command.
	//
	// The handler runs in its own goroutine. Frames whose command has no
	// handler are dropped. Registering a command twice replaces the handler.
	RegisterHandler(ctx context.Context, command Command, handler FrameHandler) error

	// Broadcast sends a frame to all connected clients.
	Broadcast(ctx context.Context, frame Frame) error

	// SendToClient sends a frame to the client with the given ID.
	//
	// Returns an error if no such client is connected.
	SendToClient(ctx context.Context, clientID string, frame Frame) error
}

// Client represents a connected WebSocket peer on the server side.
//
// The client's context is cancelled when the connection closes.
type Client interface {
	// ID returns a unique identifier for the connected client.
	ID() string

	// RemoteAddr returns the client's remote network address.
	RemoteAddr() string

	// Context returns the client's lifecycle context.
	//
	// Example:
	//
	//	go func() {
	//	    <-client.Context().Done()
	//	    log.Printf("Client %s disconnected", client.ID())
	//	}()
	Context() context.Context

	// Subprotocol returns the negotiated STOMP subprotocol, e.g. "v12.stomp",
	// or the empty string when the client did not request one.
	Subprotocol() string

	// Send encodes the frame and queues it for delivery.
	//
	// Returns an error if the connection is closed or the context is cancelled.
	Send(ctx context.Context, frame Frame) error

	// Close closes the client connection gracefully.
	Close(ctx context.Context) error

	// CloseWithCode closes the connection with a specific WebSocket close code and optional reason.
	//
	// Common close codes:
	//   - 1000 (websocket.CloseNormalClosure): Normal closure
	//   - 1002 (websocket.CloseProtocolError): Malformed STOMP frame
	//   - 1008 (websocket.ClosePolicyViolation): Rate limit exceeded
	CloseWithCode(ctx context.Context, code int, reason string) error

	// IsAlive returns true if the connection is still active.
	IsAlive() bool
}

// Conn is the client side of a STOMP-over-WebSocket connection.
//
// Send may be called concurrently with Receive. Send and Receive are each
// safe for use by one goroutine at a time.
type Conn interface {
	// Send encodes the frame and writes it as one WebSocket message.
	Send(ctx context.Context, frame Frame) error

	// Receive blocks until the next frame arrives. Heart-beat messages are
	// skipped. A malformed frame closes the connection and returns the
	// codec error. After the context is cancelled the connection is no
	// longer readable.
	Receive(ctx context.Context) (Frame, error)

	// Subprotocol returns the STOMP subprotocol the server selected.
	Subprotocol() string

	// Close sends a close message and closes the underlying connection.
	Close(ctx context.Context) error
}
