package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/stompnet"
	"github.com/luciancaetano/stompnet/internal/observability"
	"github.com/luciancaetano/stompnet/internal/protocol"
)

// CheckOriginFn is a function that validates the origin of a WebSocket connection request.
// It receives the HTTP request and returns true if the origin is allowed, false otherwise.
type CheckOriginFn = func(r *http.Request) bool

// OnConnectFn is called when a new client connects, after the WebSocket
// handshake completes and before the read loop starts.
//
// Note: This function is called synchronously during connection setup.
// Avoid long-running operations that could block new connections.
type OnConnectFn = func(client stompnet.Client)

// OnClientDisconnectFn is invoked when a connected client goes away. voluntary
// is true when the client closed the connection itself.
type OnClientDisconnectFn = func(client stompnet.Client, voluntary bool)

type ServerConfig struct {
	Addr               string
	Path               string
	RateLimitConfig    *RateLimitConfig
	CheckOrigin        CheckOriginFn
	OnConnect          OnConnectFn
	OnClientDisconnect OnClientDisconnectFn

	// MaxMessageSize bounds one inbound WebSocket message, i.e. one frame.
	// Zero means stompnet.DefaultMaxMessageSize.
	MaxMessageSize int64

	// Subprotocols offered during the handshake. Nil means stompnet.Subprotocols().
	Subprotocols []string

	// TLSCertFile and TLSKeyFile enable wss:// when both are set.
	TLSCertFile string
	TLSKeyFile  string

	// MetricsPath mounts the Prometheus handler when non-empty.
	MetricsPath string

	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// RateLimitConfig defines rate limiting configuration for clients
type RateLimitConfig struct {
	// MessagesPerSecond defines how many frames a client can send per second
	MessagesPerSecond rate.Limit
	// Burst defines the maximum burst size (token bucket capacity)
	Burst int
	// Enabled determines if rate limiting is active
	Enabled bool
}

// DefaultRateLimitConfig returns the default rate limit configuration
// Allows 100 frames per second with burst of 200
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		MessagesPerSecond: 100,
		Burst:             200,
		Enabled:           true,
	}
}

// NoRateLimit returns a configuration with rate limiting disabled
func NoRateLimit() *RateLimitConfig {
	return &RateLimitConfig{
		Enabled: false,
	}
}

// Server implements the stompnet.WebsocketServer interface
type Server struct {
	addr     string
	path     string
	server   *http.Server
	clients  sync.Map // map[string]*Client
	handlers sync.Map // map[protocol.Command]stompnet.FrameHandler

	rateLimitConfig *RateLimitConfig
	maxMessageSize  int64
	tlsCertFile     string
	tlsKeyFile      string
	metricsPath     string

	mu           sync.RWMutex
	running      bool
	upgrader     websocket.Upgrader
	onConnect    OnConnectFn
	onDisconnect OnClientDisconnectFn
	logger       zerolog.Logger
}

// New creates a new server instance with the specified configuration.
//
// A nil RateLimitConfig means DefaultRateLimitConfig(). The upgrader uses
// read/write buffer sizes of 1024 bytes and offers the STOMP subprotocols.
func New(cfg *ServerConfig) *Server {
	if cfg.RateLimitConfig == nil {
		cfg.RateLimitConfig = DefaultRateLimitConfig()
	}
	path := cfg.Path
	if path == "" {
		path = stompnet.DefaultPath
	}
	maxMessageSize := cfg.MaxMessageSize
	if maxMessageSize <= 0 {
		maxMessageSize = stompnet.DefaultMaxMessageSize
	}
	subprotocols := cfg.Subprotocols
	if subprotocols == nil {
		subprotocols = stompnet.Subprotocols()
	}

	return &Server{
		addr:            cfg.Addr,
		path:            path,
		rateLimitConfig: cfg.RateLimitConfig,
		maxMessageSize:  maxMessageSize,
		tlsCertFile:     cfg.TLSCertFile,
		tlsKeyFile:      cfg.TLSKeyFile,
		metricsPath:     cfg.MetricsPath,
		onConnect:       cfg.OnConnect,
		onDisconnect:    cfg.OnClientDisconnect,
		logger:          observability.LoggerOrDefault(cfg.Logger).With().Str("component", "stomp-server").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
			Subprotocols:    subprotocols,
		},
	}
}

// Start starts the server
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf(stompnet.ErrServerAlreadyRunning)
	}
	s.running = true
	s.mu.Unlock()

	mux := http.NewServeMux()
	mux.Handle(s.path, s.Handler())
	if s.metricsPath != "" {
		observability.RegisterMetrics()
		mux.Handle(s.metricsPath, promhttp.Handler())
	}

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	errChan := make(chan error, 1)
	go func() {
		var err error
		if s.tlsCertFile != "" && s.tlsKeyFile != "" {
			err = s.server.ListenAndServeTLS(s.tlsCertFile, s.tlsKeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Check for immediate startup errors with a small timeout
	select {
	case err := <-errChan:
		// Reset running state without calling Stop to avoid deadlock
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(stopCtx)
	case <-time.After(100 * time.Millisecond):
		s.logger.Info().Str("addr", s.addr).Str("path", s.path).Bool("tls", s.tlsCertFile != "").Msg("server started")
		return nil
	}
}

// Stop stops the server and closes every client connection
func (s *Server) Stop(ctx context.Context) error {
	s.closeClients(ctx)

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) closeClients(ctx context.Context) {
	s.clients.Range(func(key, value interface{}) bool {
		if client, ok := value.(*Client); ok {
			client.Close(ctx)
		}
		return true
	})
}

// Handler returns the upgrade handler
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleWebSocket)
}

// RegisterHandler registers a handler for a specific command
func (s *Server) RegisterHandler(ctx context.Context, command protocol.Command, handler stompnet.FrameHandler) error {
	if !command.Valid() {
		return fmt.Errorf("%s: %d", stompnet.ErrUnknownCommand, command)
	}
	s.handlers.Store(command, handler)
	return nil
}

// handleWebSocket handles incoming WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written an HTTP error response
		s.logger.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("upgrade failed")
		return
	}

	client := NewClient(conn, r.RemoteAddr, s.rateLimitConfig, s.logger)
	s.clients.Store(client.ID(), client)
	observability.PeerConnected()

	// Start reading frames from client
	go s.handleClient(client)
}

// handleClient reads frames from a connected client until it goes away
func (s *Server) handleClient(client *Client) {
	defer func() {
		voluntary := client.Context().Err() == nil

		if s.onDisconnect != nil {
			s.onDisconnect(client, voluntary)
		}
		s.clients.Delete(client.ID())
		observability.PeerDisconnected()
		client.Close(context.Background())
		client.logger.Debug().Bool("voluntary", voluntary).Msg("client disconnected")
	}()

	client.conn.SetReadLimit(s.maxMessageSize)

	// Set read deadline to prevent indefinite blocking
	client.conn.SetReadDeadline(time.Now().Add(pongWait))

	// Set pong handler to reset read deadline on pong
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	client.logger.Debug().Str("subprotocol", client.Subprotocol()).Msg("client connected")

	if s.onConnect != nil {
		s.onConnect(client)
	}

	for {
		select {
		case <-client.Context().Done():
			return
		default:
			_, data, err := client.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
					client.logger.Warn().Err(err).Msg("unexpected websocket close")
				}
				return
			}

			// Reset read deadline after successful read
			client.conn.SetReadDeadline(time.Now().Add(pongWait))

			if !client.CheckRateLimit(context.Background()) {
				client.logger.Warn().Msg("rate limit exceeded")
				observability.RecordRateLimited()
				client.CloseWithCode(context.Background(), websocket.ClosePolicyViolation, "Rate limit exceeded")
				return
			}

			if protocol.IsHeartbeat(data) {
				continue
			}

			frame, err := protocol.Decode(data)
			if err != nil {
				observability.RecordCodecError(err)
				client.logger.Warn().Err(err).Str("kind", protocol.Kind(err)).Msg("rejected frame")
				client.CloseWithCode(context.Background(), websocket.CloseProtocolError,
					stompnet.ErrInvalidMessageFormat+": "+err.Error())
				return
			}

			observability.RecordFrame(observability.DirectionIn, frame.Command())
			s.dispatch(client, frame)
		}
	}
}

// dispatch runs the handler for the frame's command in its own goroutine.
// Frames without a handler are dropped.
func (s *Server) dispatch(client *Client, frame protocol.Frame) {
	handler, ok := s.handlers.Load(frame.Command())
	if !ok {
		client.logger.Debug().Stringer("command", frame.Command()).Msg("no handler registered")
		return
	}
	if handlerFunc, ok := handler.(stompnet.FrameHandler); ok {
		go handlerFunc(client, frame)
	}
}

// GetClient returns a client by ID
func (s *Server) GetClient(id string) (*Client, bool) {
	if client, ok := s.clients.Load(id); ok {
		return client.(*Client), true
	}
	return nil, false
}

// SendToClient sends a frame to a specific client
func (s *Server) SendToClient(ctx context.Context, clientID string, frame protocol.Frame) error {
	client, ok := s.GetClient(clientID)
	if !ok {
		return fmt.Errorf("%s: %s", stompnet.ErrClientNotFound, clientID)
	}

	return client.Send(ctx, frame)
}

// Broadcast sends a frame to all connected clients
func (s *Server) Broadcast(ctx context.Context, frame protocol.Frame) error {
	var errs []error
	s.clients.Range(func(key, value interface{}) bool {
		if client, ok := value.(*Client); ok && client.IsAlive() {
			if err := client.Send(ctx, frame); err != nil {
				errs = append(errs, fmt.Errorf("client %s: %w", client.ID(), err))
			}
		}
		return true
	})
	return errors.Join(errs...)
}
