package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"Prism/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	conesProcessed *prometheus.CounterVec
	conesDegen     *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	dropped        *prometheus.CounterVec
	buffered       prometheus.Gauge
	lastPrice      *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
	frames         *prometheus.CounterVec
	streams        prometheus.Gauge
}

// New registers the recorder's collectors on reg. A nil reg uses the default
// registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		conesProcessed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prism_cones_processed_total",
				Help: "Cones turned into scenes",
			},
			[]string{"asset", "horizon"},
		),
		conesDegen: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prism_cones_degenerate_total",
				Help: "Cones that produced no surface",
			},
			[]string{"asset", "horizon"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prism_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		dropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prism_cones_dropped_total",
				Help: "Cones discarded before reaching the scene processor",
			},
			[]string{"reason"},
		),
		buffered: f.NewGauge(prometheus.GaugeOpts{
			Name: "prism_pipeline_buffered",
			Help: "Asset/horizon keys waiting for a retry",
		}),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "prism_current_price",
				Help: "Current price of the latest cone per asset",
			},
			[]string{"asset"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prism_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"operation"},
		),
		frames: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prism_frames_emitted_total",
				Help: "Morph frames written to stream clients",
			},
			[]string{"asset"},
		),
		streams: f.NewGauge(prometheus.GaugeOpts{
			Name: "prism_active_streams",
			Help: "Open frame streams",
		}),
	}
}

func (r *Recorder) RecordConeProcessed(asset string, h models.Horizon) {
	r.conesProcessed.WithLabelValues(asset, string(h)).Inc()
}

func (r *Recorder) RecordDegenerate(asset string, h models.Horizon) {
	r.conesDegen.WithLabelValues(asset, string(h)).Inc()
}

func (r *Recorder) RecordLastPrice(asset string, price float64) {
	r.lastPrice.WithLabelValues(asset).Set(price)
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordDropped(reason string) {
	r.dropped.WithLabelValues(reason).Inc()
}

func (r *Recorder) SetPipelineBuffered(n int) { r.buffered.Set(float64(n)) }

func (r *Recorder) RecordFrames(asset string, n int) {
	r.frames.WithLabelValues(asset).Add(float64(n))
}

func (r *Recorder) StreamOpened() { r.streams.Inc() }

func (r *Recorder) StreamClosed() { r.streams.Dec() }
