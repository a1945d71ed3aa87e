package protocol

import (
	"bytes"
	"errors"
	"maps"
	"strconv"
	"strings"
	"testing"
)

func mustFrame(t testing.TB, cmd Command, headers map[string]string, body []byte) Frame {
	t.Helper()
	f, err := NewFrame(cmd, headers, body)
	if err != nil {
		t.Fatalf("NewFrame() failed: %v", err)
	}
	return f
}

// TestEncode tests the exact wire encoding of frames
func TestEncode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		command Command
		headers map[string]string
		body    []byte
		want    string
	}{
		{
			name:    "no headers no body",
			command: Disconnect,
			want:    "DISCONNECT\n\n\x00",
		},
		{
			name:    "send with body",
			command: Send,
			headers: map[string]string{"destination": "/queue/a"},
			body:    []byte("hello"),
			want:    "SEND\ndestination:/queue/a\n\nhello\x00",
		},
		{
			name:    "headers sorted by key",
			command: Subscribe,
			headers: map[string]string{"id": "0", "destination": "/topic/x", "ack": "client"},
			want:    "SUBSCRIBE\nack:client\ndestination:/topic/x\nid:0\n\n\x00",
		},
		{
			name:    "escaped key and value",
			command: Message,
			headers: map[string]string{"a:b": "c\\d\r\ne"},
			want:    "MESSAGE\na\\cb:c\\\\d\\r\\ne\n\n\x00",
		},
		{
			name:    "connect headers verbatim",
			command: Connect,
			headers: map[string]string{"passcode": "a:b\\c"},
			want:    "CONNECT\npasscode:a:b\\c\n\n\x00",
		},
		{
			name:    "connected headers verbatim",
			command: Connected,
			headers: map[string]string{"version": "1.2", "server": "x\\y"},
			want:    "CONNECTED\nserver:x\\y\nversion:1.2\n\n\x00",
		},
		{
			name:    "binary body written raw",
			command: Error,
			body:    []byte{0x00, 0xFF, '\n', 0x01},
			want:    "ERROR\n\n\x00\xff\n\x01\x00",
		},
		{
			name:    "empty header value",
			command: Ack,
			headers: map[string]string{"id": ""},
			want:    "ACK\nid:\n\n\x00",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Encode(mustFrame(t, tt.command, tt.headers, tt.body))
			if string(got) != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestEncodeDeterministic tests that repeated encodes produce identical bytes
func TestEncodeDeterministic(t *testing.T) {
	t.Parallel()

	headers := map[string]string{}
	for i := 0; i < 32; i++ {
		headers["h"+strconv.Itoa(i)] = strconv.Itoa(i)
	}
	f := mustFrame(t, Send, headers, []byte("x"))

	first := Encode(f)
	for i := 0; i < 10; i++ {
		if got := Encode(f); !bytes.Equal(got, first) {
			t.Fatalf("Encode() not deterministic: %q != %q", got, first)
		}
	}
}

// TestDecode tests decoding of well-formed frames
func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		data        string
		wantCmd     Command
		wantHeaders map[string]string
		wantBody    []byte
	}{
		{
			name:        "send frame with sentinel body",
			data:        "SEND\n\nbody\x00\n\n",
			wantCmd:     Send,
			wantHeaders: map[string]string{},
			wantBody:    []byte("body"),
		},
		{
			name:    "connected headers are not unescaped",
			data:    "CONNECTED\nheader1:  a\\\\b\\r\\n\\c   \n\n\x00",
			wantCmd: Connected,
			wantHeaders: map[string]string{
				"header1": "  a\\\\b\\r\\n\\c   ",
			},
		},
		{
			name:        "first duplicate header wins",
			data:        "ERROR\nheader1:foobar\nheader1:oldvalue1\nheader1:oldvalue2\n\nbody123\x00",
			wantCmd:     Error,
			wantHeaders: map[string]string{"header1": "foobar"},
			wantBody:    []byte("body123"),
		},
		{
			name:    "content-length body keeps embedded NULs",
			data:    "MESSAGE\ncontent-length:9\r\nheader1:a\\\\r\\r\\n\\c\n\nbody123\x00\x00\x00\n\n\n",
			wantCmd: Message,
			wantHeaders: map[string]string{
				"content-length": "9",
				"header1":        "a\\r\r\n:",
			},
			wantBody: []byte("body123\x00\x00"),
		},
		{
			name:        "crlf line endings",
			data:        "RECEIPT\r\nreceipt-id:77\r\n\r\n\x00\r\n",
			wantCmd:     Receipt,
			wantHeaders: map[string]string{"receipt-id": "77"},
		},
		{
			name:        "empty header value",
			data:        "ACK\nid:\n\n\x00",
			wantCmd:     Ack,
			wantHeaders: map[string]string{"id": ""},
		},
		{
			name:        "zero content-length",
			data:        "SEND\ncontent-length:0\n\n\x00",
			wantCmd:     Send,
			wantHeaders: map[string]string{"content-length": "0"},
		},
		{
			name:        "content-length body keeps line endings",
			data:        "SEND\ncontent-length:4\n\na\nb\n\x00",
			wantCmd:     Send,
			wantHeaders: map[string]string{"content-length": "4"},
			wantBody:    []byte("a\nb\n"),
		},
		{
			name:        "utf-8 header text",
			data:        "SEND\nnaïve:日本\n\n\x00",
			wantCmd:     Send,
			wantHeaders: map[string]string{"naïve": "日本"},
		},
		{
			name:        "stomp command",
			data:        "STOMP\naccept-version:1.2\nhost:example.com\n\n\x00",
			wantCmd:     Stomp,
			wantHeaders: map[string]string{"accept-version": "1.2", "host": "example.com"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Decode([]byte(tt.data))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}

			if got.Command() != tt.wantCmd {
				t.Errorf("Decode() command = %v, want %v", got.Command(), tt.wantCmd)
			}

			if !maps.Equal(got.Headers(), tt.wantHeaders) {
				t.Errorf("Decode() headers = %v, want %v", got.Headers(), tt.wantHeaders)
			}

			if !bytes.Equal(got.Body(), tt.wantBody) {
				t.Errorf("Decode() body = %q, want %q", got.Body(), tt.wantBody)
			}

			if got.HasBody() != (len(tt.wantBody) > 0) {
				t.Errorf("Decode() HasBody = %v, want %v", got.HasBody(), len(tt.wantBody) > 0)
			}
		})
	}
}

// TestDecodeErrors tests that malformed input is rejected with the right classification
func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"unknown command", "nonsense\r\n\r\n\x00", ErrSyntax},
		{"lowercase command", "send\n\n\x00", ErrSyntax},
		{"command prefix of another", "CONNECTEDX\n\n\x00", ErrSyntax},
		{"empty input", "", ErrSyntax},
		{"cr lf swapped", "CONNECT\n\r\r\n\x00", ErrSyntax},
		{"non utf-8 header value", "SEND\nheader1:val\xc3\x28e1\n\nbody\x00", ErrEncoding},
		{"non utf-8 header key", "SEND\nk\xffey:v\n\n\x00", ErrEncoding},
		{"non utf-8 in connect header", "CONNECT\nlogin:\xff\n\n\x00", ErrEncoding},
		{"missing null terminator", "CONNECT\r\n\r\n", ErrSyntax},
		{"content-length overrun", "SEND\ncontent-length:5\n\nbody\x00\n", ErrSyntax},
		{"content-length underrun", "SEND\ncontent-length:3\n\nbody\x00", ErrSyntax},
		{"content-length beyond input", "SEND\ncontent-length:100\n\nbody\x00", ErrSyntax},
		{"invalid escape", "SEND\nheader1:abc\\tdef\n\n\x00", ErrSyntax},
		{"incomplete escape", "SEND\nheader1:abc\\\n\n\x00", ErrSyntax},
		{"invalid escape in key", "SEND\nk\\x:v\n\n\x00", ErrSyntax},
		{"ack with body", "ACK\n\nbody\x00\n\n", ErrSyntax},
		{"connected with body", "CONNECTED\nversion:1.2\n\nhi\x00", ErrSyntax},
		{"content-length not a number", "SEND\ncontent-length:nine\n\n\x00", ErrHeaderValue},
		{"content-length negative", "SEND\ncontent-length:-1\n\n\x00", ErrHeaderValue},
		{"content-length signed", "SEND\ncontent-length:+4\n\nbody\x00", ErrHeaderValue},
		{"content-length empty", "SEND\ncontent-length:\n\n\x00", ErrHeaderValue},
		{"content-length overflow", "SEND\ncontent-length:99999999999999999999999\n\n\x00", ErrHeaderValue},
		{"header without separator", "SEND\ntesttest\n\n\x00", ErrSyntax},
		{"header with empty key", "SEND\n:value\n\n\x00", ErrSyntax},
		{"header with two separators", "SEND\na:b:c\n\n\x00", ErrSyntax},
		{"missing blank line", "SEND\na:b\n", ErrSyntax},
		{"bare cr after command", "SEND\r\n\x00", ErrSyntax},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decode([]byte(tt.data))
			if err == nil {
				t.Fatalf("Decode() error = nil, want %v", tt.wantErr)
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestDecodeErrorDetails tests the diagnostic payload carried by each error type
func TestDecodeErrorDetails(t *testing.T) {
	t.Parallel()

	t.Run("header value error names content-length", func(t *testing.T) {
		t.Parallel()

		_, err := Decode([]byte("SEND\ncontent-length:abc\n\n\x00"))
		var hve *HeaderValueError
		if !errors.As(err, &hve) {
			t.Fatalf("Decode() error = %T, want *HeaderValueError", err)
		}
		if hve.Name != HeaderContentLength {
			t.Errorf("Name = %q, want %q", hve.Name, HeaderContentLength)
		}
		if hve.Value != "abc" {
			t.Errorf("Value = %q, want %q", hve.Value, "abc")
		}
	})

	t.Run("encoding error unwraps to invalid utf-8", func(t *testing.T) {
		t.Parallel()

		_, err := Decode([]byte("SEND\nheader1:val\xc3\x28e1\n\n\x00"))
		var ee *EncodingError
		if !errors.As(err, &ee) {
			t.Fatalf("Decode() error = %T, want *EncodingError", err)
		}
		if !errors.Is(err, ErrInvalidUTF8) {
			t.Errorf("errors.Is(err, ErrInvalidUTF8) = false")
		}
		if ee.Offset != 3 {
			t.Errorf("Offset = %d, want 3", ee.Offset)
		}
	})

	t.Run("escape error carries original header", func(t *testing.T) {
		t.Parallel()

		_, err := Decode([]byte("SEND\nheader1:abc\\tdef\n\n\x00"))
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Fatalf("Decode() error = %T, want *SyntaxError", err)
		}
		if se.Fragment != `abc\tdef` {
			t.Errorf("Fragment = %q, want %q", se.Fragment, `abc\tdef`)
		}
	})

	t.Run("terminator error carries remainder", func(t *testing.T) {
		t.Parallel()

		_, err := Decode([]byte("SEND\ncontent-length:3\n\nbody\x00"))
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Fatalf("Decode() error = %T, want *SyntaxError", err)
		}
		if se.Fragment != "y\x00" {
			t.Errorf("Fragment = %q, want %q", se.Fragment, "y\x00")
		}
	})

	t.Run("unknown command carries input", func(t *testing.T) {
		t.Parallel()

		_, err := Decode([]byte("BOGUS\n\n\x00"))
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Fatalf("Decode() error = %T, want *SyntaxError", err)
		}
		if !strings.HasPrefix(se.Fragment, "BOGUS") {
			t.Errorf("Fragment = %q, want prefix BOGUS", se.Fragment)
		}
	})

	t.Run("body on ack names the command", func(t *testing.T) {
		t.Parallel()

		_, err := Decode([]byte("ACK\n\nbody\x00"))
		if err == nil || !strings.Contains(err.Error(), "ACK") {
			t.Errorf("Decode() error = %v, want mention of ACK", err)
		}
	})
}

// TestEncodeDecodeRoundTrip verifies that Decode reverses Encode
func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		command Command
		headers map[string]string
		body    []byte
	}{
		{"empty frame", Disconnect, nil, nil},
		{"send text body", Send, map[string]string{"destination": "/queue/a"}, []byte("Hello, World!")},
		{"special characters", Send, map[string]string{"header1": "a\\\\r\r\n:"}, []byte("body")},
		{"escaped keys", Message, map[string]string{"k:\\\r\n": "v"}, []byte("x")},
		{"binary body with length", Message, map[string]string{"content-length": "5"}, []byte{0x00, 0x01, 0xFF, 0xFE, 0x00}},
		{"connect headers", Connect, map[string]string{"accept-version": "1.2", "host": "h", "passcode": "p\\w"}, nil},
		{"many headers", Subscribe, map[string]string{"id": "1", "destination": "/topic/t", "ack": "client-individual"}, nil},
		{"large body", Error, map[string]string{"message": "boom"}, bytes.Repeat([]byte("abc"), 100*1024)},
		{"utf-8 headers", Receipt, map[string]string{"receipt-id": "ü:ß"}, nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			original := mustFrame(t, tt.command, tt.headers, tt.body)

			decoded, err := Decode(Encode(original))
			if err != nil {
				t.Fatalf("Decode() failed: %v", err)
			}

			if !decoded.Equal(original) {
				t.Errorf("round trip mismatch: got %v, want %v", decoded, original)
			}
		})
	}
}

// TestDecodeNext tests splitting a buffer holding several frames
func TestDecodeNext(t *testing.T) {
	t.Parallel()

	data := []byte("SEND\n\none\x00\n\r\nMESSAGE\ncontent-length:3\n\ntwo\x00BEGIN\ntransaction:t1\n\n\x00")

	want := []struct {
		cmd  Command
		body string
	}{
		{Send, "one"},
		{Message, "two"},
		{Begin, ""},
	}

	rest := data
	for i, w := range want {
		var (
			f   Frame
			err error
		)
		f, rest, err = DecodeNext(rest)
		if err != nil {
			t.Fatalf("frame %d: DecodeNext() error = %v", i, err)
		}
		if f.Command() != w.cmd {
			t.Errorf("frame %d: command = %v, want %v", i, f.Command(), w.cmd)
		}
		if string(f.Body()) != w.body {
			t.Errorf("frame %d: body = %q, want %q", i, f.Body(), w.body)
		}
	}

	if len(rest) != 0 {
		t.Errorf("rest = %q, want empty", rest)
	}
}

// TestDecodeBodyIsCopied tests that the decoded frame does not alias the input buffer
func TestDecodeBodyIsCopied(t *testing.T) {
	t.Parallel()

	data := []byte("SEND\n\nABC\x00")
	f, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}

	data[6] = 'Z'

	if string(f.Body()) != "ABC" {
		t.Errorf("Body() = %q after input mutation, want %q", f.Body(), "ABC")
	}
}

// TestIsHeartbeat tests recognition of EOL-only buffers
func TestIsHeartbeat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		data string
		want bool
	}{
		{"\n", true},
		{"\r\n", true},
		{"\n\n\r\n", true},
		{"", false},
		{"\r", false},
		{"SEND\n\n\x00", false},
		{"\n\x00", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(strconv.Quote(tt.data), func(t *testing.T) {
			t.Parallel()

			if got := IsHeartbeat([]byte(tt.data)); got != tt.want {
				t.Errorf("IsHeartbeat(%q) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}

// TestKind tests error classification
func TestKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"syntax", &SyntaxError{Reason: "x"}, KindSyntax},
		{"encoding", &EncodingError{Err: ErrInvalidUTF8}, KindEncoding},
		{"header", &HeaderValueError{Name: "content-length"}, KindHeader},
		{"foreign", errors.New("other"), ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Kind(tt.err); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

// BenchmarkEncode benchmarks the encoding operation
func BenchmarkEncode(b *testing.B) {
	f := mustFrame(b, Send, map[string]string{"destination": "/queue/bench", "content-type": "text/plain"},
		[]byte("benchmark test payload with some data"))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Encode(f)
	}
}

// BenchmarkDecode benchmarks the decoding operation
func BenchmarkDecode(b *testing.B) {
	data := Encode(mustFrame(b, Send, map[string]string{"destination": "/queue/bench", "content-type": "text/plain"},
		[]byte("benchmark test payload with some data")))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Decode(data)
	}
}

// BenchmarkDecodeLargeBody benchmarks decoding a 1MB explicit-length body
func BenchmarkDecodeLargeBody(b *testing.B) {
	body := make([]byte, 1024*1024)
	data := Encode(mustFrame(b, Message, map[string]string{"content-length": strconv.Itoa(len(body))}, body))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Decode(data)
	}
}
