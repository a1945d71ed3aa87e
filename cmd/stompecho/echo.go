package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/luciancaetano/stompnet"
	"github.com/luciancaetano/stompnet/ws"
)

const serverName = "stompecho/1.0"

// supportedVersions lists STOMP versions in order of preference.
var supportedVersions = []string{"1.2", "1.1", "1.0"}

// EchoServer relays SEND frames as MESSAGE frames to every client
// subscribed to the destination.
type EchoServer struct {
	server stompnet.WebsocketServer
	logger zerolog.Logger

	mu   sync.RWMutex
	subs map[string]map[string]string // client ID -> subscription ID -> destination
}

func NewEchoServer(cfg ws.ServerConfig, logger zerolog.Logger) *EchoServer {
	es := &EchoServer{
		logger: logger,
		subs:   make(map[string]map[string]string),
	}

	onConnect := cfg.OnConnect
	cfg.OnConnect = func(client stompnet.Client) {
		es.logger.Info().Str("client_id", client.ID()).Str("remote_addr", client.RemoteAddr()).Msg("client connected")
		if onConnect != nil {
			onConnect(client)
		}
	}
	onDisconnect := cfg.OnClientDisconnect
	cfg.OnClientDisconnect = func(client stompnet.Client, voluntary bool) {
		es.dropClient(client.ID())
		es.logger.Info().Str("client_id", client.ID()).Bool("voluntary", voluntary).Msg("client disconnected")
		if onDisconnect != nil {
			onDisconnect(client, voluntary)
		}
	}
	cfg.Logger = &logger

	es.server = ws.New(cfg)
	return es
}

// Register installs the frame handlers.
func (es *EchoServer) Register(ctx context.Context) error {
	handlers := map[stompnet.Command]stompnet.FrameHandler{
		stompnet.Connect:     es.handleConnect,
		stompnet.Stomp:       es.handleConnect,
		stompnet.Subscribe:   es.handleSubscribe,
		stompnet.Unsubscribe: es.handleUnsubscribe,
		stompnet.Send:        es.handleSend,
		stompnet.Disconnect:  es.handleDisconnect,
	}
	for cmd, handler := range handlers {
		if err := es.server.RegisterHandler(ctx, cmd, handler); err != nil {
			return fmt.Errorf("failed to register %s handler: %w", cmd, err)
		}
	}
	return nil
}

func (es *EchoServer) Start(ctx context.Context) error {
	if err := es.Register(ctx); err != nil {
		return err
	}
	return es.server.Start(ctx)
}

func (es *EchoServer) Stop(ctx context.Context) error {
	return es.server.Stop(ctx)
}

func (es *EchoServer) handleConnect(client stompnet.Client, f stompnet.Frame) {
	accept, ok := f.Header(stompnet.HeaderAcceptVersion)
	if !ok {
		// STOMP 1.0 clients send no accept-version.
		accept = "1.0"
	}
	version, ok := negotiateVersion(accept)
	if !ok {
		es.sendError(client, f, "unsupported protocol version", "Supported versions are "+strings.Join(supportedVersions, ","))
		return
	}

	reply, err := stompnet.NewFrame(stompnet.Connected, map[string]string{
		stompnet.HeaderVersion: version,
		"server":               serverName,
		"session":              client.ID(),
		"heart-beat":           "0,0",
	}, nil)
	if err != nil {
		es.logger.Error().Err(err).Msg("build CONNECTED frame")
		return
	}
	es.send(client, reply)
}

func (es *EchoServer) handleSubscribe(client stompnet.Client, f stompnet.Frame) {
	id, okID := f.Header("id")
	dest, okDest := f.Header(stompnet.HeaderDestination)
	if !okID || !okDest {
		es.sendError(client, f, "SUBSCRIBE requires id and destination headers", "")
		return
	}

	es.mu.Lock()
	if es.subs[client.ID()] == nil {
		es.subs[client.ID()] = make(map[string]string)
	}
	es.subs[client.ID()][id] = dest
	es.mu.Unlock()

	es.logger.Debug().Str("client_id", client.ID()).Str("subscription", id).Str("destination", dest).Msg("subscribed")
	es.sendReceipt(client, f)
}

func (es *EchoServer) handleUnsubscribe(client stompnet.Client, f stompnet.Frame) {
	id, ok := f.Header("id")
	if !ok {
		es.sendError(client, f, "UNSUBSCRIBE requires an id header", "")
		return
	}

	es.mu.Lock()
	delete(es.subs[client.ID()], id)
	es.mu.Unlock()

	es.sendReceipt(client, f)
}

func (es *EchoServer) handleSend(client stompnet.Client, f stompnet.Frame) {
	dest, ok := f.Header(stompnet.HeaderDestination)
	if !ok {
		es.sendError(client, f, "SEND requires a destination header", "")
		return
	}

	type target struct {
		clientID       string
		subscriptionID string
	}
	var targets []target
	es.mu.RLock()
	for clientID, subs := range es.subs {
		for subID, d := range subs {
			if d == dest {
				targets = append(targets, target{clientID, subID})
			}
		}
	}
	es.mu.RUnlock()

	for _, t := range targets {
		msg, err := newMessage(f, dest, t.subscriptionID)
		if err != nil {
			es.logger.Error().Err(err).Msg("build MESSAGE frame")
			return
		}
		if err := es.sendTo(t.clientID, msg); err != nil {
			es.logger.Warn().Err(err).Str("client_id", t.clientID).Msg("deliver MESSAGE failed")
		}
	}

	es.sendReceipt(client, f)
}

// handleDisconnect acknowledges the receipt; the client closes the socket.
func (es *EchoServer) handleDisconnect(client stompnet.Client, f stompnet.Frame) {
	es.dropClient(client.ID())
	es.sendReceipt(client, f)
}

// newMessage builds the MESSAGE delivered for a SEND to one subscription.
func newMessage(send stompnet.Frame, dest, subscription string) (stompnet.Frame, error) {
	headers := map[string]string{
		stompnet.HeaderDestination: dest,
		stompnet.HeaderMessageID:   uuid.NewString(),
		"subscription":             subscription,
	}
	if ct, ok := send.Header(stompnet.HeaderContentType); ok {
		headers[stompnet.HeaderContentType] = ct
	}
	if send.HasBody() {
		headers[stompnet.HeaderContentLength] = strconv.Itoa(len(send.Body()))
	}
	return stompnet.NewFrame(stompnet.Message, headers, send.Body())
}

// negotiateVersion picks the highest supported version from a
// comma-separated accept-version value.
func negotiateVersion(accept string) (string, bool) {
	offered := make(map[string]bool)
	for _, v := range strings.Split(accept, ",") {
		offered[strings.TrimSpace(v)] = true
	}
	for _, v := range supportedVersions {
		if offered[v] {
			return v, true
		}
	}
	return "", false
}

func (es *EchoServer) sendReceipt(client stompnet.Client, f stompnet.Frame) {
	id, ok := f.Header(stompnet.HeaderReceipt)
	if !ok {
		return
	}
	receipt, err := stompnet.NewFrame(stompnet.Receipt, map[string]string{stompnet.HeaderReceiptID: id}, nil)
	if err != nil {
		es.logger.Error().Err(err).Msg("build RECEIPT frame")
		return
	}
	es.send(client, receipt)
}

func (es *EchoServer) sendError(client stompnet.Client, cause stompnet.Frame, message, detail string) {
	headers := map[string]string{stompnet.HeaderMessage: message}
	if id, ok := cause.Header(stompnet.HeaderReceipt); ok {
		headers[stompnet.HeaderReceiptID] = id
	}
	var body []byte
	if detail != "" {
		body = []byte(detail)
		headers[stompnet.HeaderContentType] = "text/plain"
		headers[stompnet.HeaderContentLength] = strconv.Itoa(len(body))
	}
	frame, err := stompnet.NewFrame(stompnet.Error, headers, body)
	if err != nil {
		es.logger.Error().Err(err).Msg("build ERROR frame")
		return
	}
	es.send(client, frame)
}

func (es *EchoServer) send(client stompnet.Client, f stompnet.Frame) {
	if err := client.Send(context.Background(), f); err != nil {
		es.logger.Warn().Err(err).Str("client_id", client.ID()).Stringer("command", f.Command()).Msg("send failed")
	}
}

func (es *EchoServer) sendTo(clientID string, f stompnet.Frame) error {
	return es.server.SendToClient(context.Background(), clientID, f)
}

func (es *EchoServer) dropClient(clientID string) {
	es.mu.Lock()
	delete(es.subs, clientID)
	es.mu.Unlock()
}
