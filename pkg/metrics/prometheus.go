package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var channelStates = []string{"disconnected", "reconnecting", "connected"}

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	snapshots    *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	channelState *prometheus.GaugeVec
	bufferSize   prometheus.Gauge
	latency      *prometheus.HistogramVec
}

// New registers the recorder on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the recorder on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		snapshots: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigmasync_snapshots_accepted_total",
				Help: "Snapshots accepted into the history buffer",
			},
			[]string{"source"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigmasync_errors_total",
				Help: "Errors encountered by type",
			},
			[]string{"type"},
		),
		channelState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sigmasync_push_channel_state",
				Help: "1 for the current push channel state, 0 otherwise",
			},
			[]string{"state"},
		),
		bufferSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "sigmasync_history_buffer_length",
			Help: "Snapshots currently retained",
		}),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sigmasync_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordSnapshot(source string) {
	r.snapshots.WithLabelValues(source).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordChannelState sets the gauge for state to 1 and the others to 0.
func (r *Recorder) RecordChannelState(state string) {
	for _, s := range channelStates {
		v := 0.0
		if s == state {
			v = 1
		}
		r.channelState.WithLabelValues(s).Set(v)
	}
}

func (r *Recorder) RecordBufferSize(n int) {
	r.bufferSize.Set(float64(n))
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
