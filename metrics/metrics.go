package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "voice_relay"

// Metrics holds the relay collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	ActiveSessions  prometheus.Gauge
	SessionsTotal   prometheus.Counter
	SessionDuration prometheus.Histogram
	ChunksReceived  prometheus.Counter
	ChunksRejected  *prometheus.CounterVec
	BatchesSent     prometheus.Counter
	BatchBytes      prometheus.Histogram
	ProtocolErrors  *prometheus.CounterVec
	Transcripts     *prometheus.CounterVec
	Replies         prometheus.Counter
	BackendErrors   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of open media sessions",
		}),
		SessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total media sessions accepted",
		}),
		SessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Lifetime of media sessions",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		ChunksReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_chunks_received_total",
			Help:      "Audio chunks decoded from media frames",
		}),
		ChunksRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_chunks_rejected_total",
			Help:      "Audio chunks the buffer refused",
		}, []string{"reason"}),
		BatchesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_batches_sent_total",
			Help:      "Coalesced audio batches sent to the recognizer",
		}),
		BatchBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "audio_batch_bytes",
			Help:      "Size of coalesced audio batches",
			Buckets:   prometheus.ExponentialBuckets(160, 2, 10),
		}),
		ProtocolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_errors_total",
			Help:      "Inbound frames that could not be processed",
		}, []string{"kind"}),
		Transcripts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_total",
			Help:      "Transcript results received from the recognizer",
		}, []string{"final"}),
		Replies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Bot responses written to clients",
		}),
		BackendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_errors_total",
			Help:      "Recognition streams that ended with an error",
		}, []string{"stage"}),
	}

	reg.MustRegister(
		m.ActiveSessions,
		m.SessionsTotal,
		m.SessionDuration,
		m.ChunksReceived,
		m.ChunksRejected,
		m.BatchesSent,
		m.BatchBytes,
		m.ProtocolErrors,
		m.Transcripts,
		m.Replies,
		m.BackendErrors,
	)
	return m
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsTotal.Inc()
	m.ActiveSessions.Inc()
}

func (m *Metrics) SessionEnded(seconds float64) {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
	m.SessionDuration.Observe(seconds)
}

func (m *Metrics) ChunkReceived() {
	if m == nil {
		return
	}
	m.ChunksReceived.Inc()
}

func (m *Metrics) ChunkRejected(reason string) {
	if m == nil {
		return
	}
	m.ChunksRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) BatchSent(size int) {
	if m == nil {
		return
	}
	m.BatchesSent.Inc()
	m.BatchBytes.Observe(float64(size))
}

func (m *Metrics) ProtocolError(kind string) {
	if m == nil {
		return
	}
	m.ProtocolErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) Transcript(final bool) {
	if m == nil {
		return
	}
	label := "false"
	if final {
		label = "true"
	}
	m.Transcripts.WithLabelValues(label).Inc()
}

func (m *Metrics) ReplySent() {
	if m == nil {
		return
	}
	m.Replies.Inc()
}

func (m *Metrics) BackendError(stage string) {
	if m == nil {
		return
	}
	m.BackendErrors.WithLabelValues(stage).Inc()
}
