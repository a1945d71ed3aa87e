package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luciancaetano/stompnet/internal/protocol"
)

// Frame directions.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

var (
	registerOnce sync.Once

	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stompnet",
			Subsystem: "frames",
			Name:      "total",
			Help:      "STOMP frames encoded or decoded.",
		},
		[]string{"direction", "command"},
	)
	codecErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stompnet",
			Subsystem: "codec",
			Name:      "errors_total",
			Help:      "Inbound frames rejected by the decoder.",
		},
		[]string{"kind"},
	)
	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stompnet",
			Subsystem: "peers",
			Name:      "rate_limited_total",
			Help:      "Peers disconnected for exceeding the message rate limit.",
		},
	)
	peersConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stompnet",
			Subsystem: "peers",
			Name:      "connected",
			Help:      "Currently connected WebSocket peers.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesTotal, codecErrors, rateLimited, peersConnected)
	})
}

func RecordFrame(direction string, cmd protocol.Command) {
	RegisterMetrics()
	framesTotal.WithLabelValues(direction, cmd.String()).Inc()
}

// RecordCodecError counts a decode failure by its protocol.Kind.
func RecordCodecError(err error) {
	RegisterMetrics()
	kind := protocol.Kind(err)
	if kind == "" {
		kind = "other"
	}
	codecErrors.WithLabelValues(kind).Inc()
}

func RecordRateLimited() {
	RegisterMetrics()
	rateLimited.Inc()
}

func PeerConnected() {
	RegisterMetrics()
	peersConnected.Inc()
}

func PeerDisconnected() {
	RegisterMetrics()
	peersConnected.Dec()
}
