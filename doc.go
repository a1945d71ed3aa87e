// Package stompnet encodes and decodes STOMP 1.2 frames and carries them over
// secure WebSockets.
//
// A frame is a command, a set of headers and an optional body. Frames are
// built with NewFrame, which rejects a body on any command other than SEND,
// MESSAGE and ERROR, and are immutable afterwards.
//
// # Wire format
//
//	COMMAND EOL
//	*( header EOL )
//	EOL
//	body NUL *( EOL )
//
// EOL is LF or CRLF. Header names and values are escaped (\\, \r, \n, \c)
// for every command except CONNECT and CONNECTED. When a header is repeated
// the first occurrence wins. With a content-length header the body is read
// by length and may contain NUL octets; otherwise it ends at the first NUL.
//
//	f, _ := stompnet.NewFrame(stompnet.Send, map[string]string{"destination": "/queue/a"}, []byte("hi"))
//	wire := stompnet.Encode(f) // "SEND\ndestination:/queue/a\n\nhi\x00"
//	back, err := stompnet.Decode(wire)
//
// Decode errors are one of *SyntaxError, *EncodingError (header octets that
// are not UTF-8) or *HeaderValueError (a bad content-length). Each matches
// its sentinel with errors.Is:
//
//	if errors.Is(err, stompnet.ErrSyntax) { ... }
//
// # Transport
//
// The ws package serves and dials STOMP over WebSocket with gorilla/websocket.
// Each WebSocket message carries exactly one frame; messages made only of line
// endings are heart-beats and are skipped. A peer that sends a malformed frame
// is closed with code 1002 (protocol error).
//
//	server := ws.New(ws.NewConfig(":61614", ws.DefaultRateLimitConfig(), ws.AllOrigins(), nil, nil))
//	server.RegisterHandler(ctx, stompnet.Send, func(client stompnet.Client, f stompnet.Frame) {
//	    // ...
//	})
//	server.Start(ctx)
//
// Clients connect to wss:// endpoints only:
//
//	conn, err := ws.Dial(ctx, "wss://broker.example.com/stomp", nil)
//	conn.Send(ctx, f)
//	reply, err := conn.Receive(ctx)
//
// # Security Features
//
//   - Rate limiting per client (close code 1008 when exceeded)
//   - Maximum frame size: 10MB by default
//   - Read timeout: 60s, refreshed by pongs
//   - Write timeout: 10s
//   - Origin validation via CheckOriginFn
//
// # Important
//
//   - Handlers execute in goroutines (no execution order guarantee)
//   - Configure CheckOriginFn in production (never use ws.AllOrigins() in production)
package stompnet
