package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/luciancaetano/stompnet/internal/protocol"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	before := testutil.ToFloat64(framesTotal.WithLabelValues(DirectionIn, "SEND"))
	RecordFrame(DirectionIn, protocol.Send)
	if got := testutil.ToFloat64(framesTotal.WithLabelValues(DirectionIn, "SEND")); got != before+1 {
		t.Errorf("frames{in,SEND} = %v, want %v", got, before+1)
	}

	_, err := protocol.Decode([]byte("BOGUS\n\n\x00"))
	before = testutil.ToFloat64(codecErrors.WithLabelValues(protocol.KindSyntax))
	RecordCodecError(err)
	if got := testutil.ToFloat64(codecErrors.WithLabelValues(protocol.KindSyntax)); got != before+1 {
		t.Errorf("codec_errors{syntax} = %v, want %v", got, before+1)
	}

	before = testutil.ToFloat64(peersConnected)
	PeerConnected()
	PeerDisconnected()
	if got := testutil.ToFloat64(peersConnected); got != before {
		t.Errorf("peers_connected = %v, want %v", got, before)
	}

	RecordRateLimited()
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"info", zerolog.InfoLevel},
		{" DEBUG ", zerolog.DebugLevel},
		{"trace", zerolog.TraceLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.raw); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestLoggerOrDefault(t *testing.T) {
	t.Parallel()

	custom := zerolog.Nop()
	if got := LoggerOrDefault(&custom); got.GetLevel() != zerolog.Disabled {
		t.Errorf("LoggerOrDefault(nop).GetLevel() = %v, want disabled", got.GetLevel())
	}
	_ = LoggerOrDefault(nil)
}
