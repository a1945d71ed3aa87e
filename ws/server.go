package ws

import (
	"context"
	"net/http"

	"github.com/luciancaetano/stompnet"
	"github.com/luciancaetano/stompnet/internal/endpoint"
	"github.com/luciancaetano/stompnet/internal/websocket"
)

type RateLimitConfig = websocket.RateLimitConfig
type CheckOriginFn = websocket.CheckOriginFn
type OnConnectFn = websocket.OnConnectFn
type OnDisconnectFn = websocket.OnClientDisconnectFn
type ServerConfig = *websocket.ServerConfig
type DialOptions = websocket.DialOptions

// New creates a new STOMP-over-WebSocket server with rate limiting and connection callbacks.
//
// Use NewConfig for the common fields and set the rest (Path, MaxMessageSize,
// TLSCertFile/TLSKeyFile, MetricsPath, Logger) on the returned config.
//
// Example:
//
//	cfg := ws.NewConfig(":61614", ws.DefaultRateLimitConfig(), ws.AllOrigins(), func(client stompnet.Client) {
//	    log.Printf("Client connected: %s", client.ID())
//	}, nil)
//	server := ws.New(cfg)
func New(cfg ServerConfig) stompnet.WebsocketServer {
	return websocket.New(cfg)
}

// NewConfig builds a server configuration with the default path and limits.
//
// Parameters:
//   - addr: The server address (e.g., ":61614" or "localhost:61614")
//   - rateLimitConfig: Rate limiting configuration. Use DefaultRateLimitConfig() or NoRateLimit()
//   - checkOrigin: Function to validate WebSocket origins. Use AllOrigins() to allow all (dev only)
//   - onConnect: Optional callback called after the handshake completes. Can be nil.
//   - onDisconnect: Optional callback called when the client goes away. Can be nil.
func NewConfig(addr string, rateLimitConfig *RateLimitConfig, checkOrigin CheckOriginFn, onConnect OnConnectFn, onDisconnect OnDisconnectFn) ServerConfig {
	return &websocket.ServerConfig{
		Addr:               addr,
		Path:               stompnet.DefaultPath,
		RateLimitConfig:    rateLimitConfig,
		CheckOrigin:        checkOrigin,
		OnConnect:          onConnect,
		OnClientDisconnect: onDisconnect,
		MaxMessageSize:     stompnet.DefaultMaxMessageSize,
	}
}

// AllOrigins returns the default checkOrigin function that allows all origins
func AllOrigins() CheckOriginFn {
	return func(r *http.Request) bool {
		return true
	}
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() *RateLimitConfig {
	return websocket.DefaultRateLimitConfig()
}

// NoRateLimit returns a configuration with rate limiting disabled
func NoRateLimit() *RateLimitConfig {
	return websocket.NoRateLimit()
}

// Dial validates rawURL as a wss:// endpoint and opens a connection to it.
// opts may be nil.
//
// Example:
//
//	conn, err := ws.Dial(ctx, "wss://broker.example.com/stomp", nil)
//	if err != nil {
//	    return err
//	}
//	defer conn.Close(ctx)
func Dial(ctx context.Context, rawURL string, opts *DialOptions) (stompnet.Conn, error) {
	ep, err := endpoint.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	conn, err := websocket.Dial(ctx, ep, opts)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
