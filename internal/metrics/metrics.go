// Package metrics implements Prometheus metrics.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"firestige.xyz/ifmon/internal/sink"
)

var (
	// PacketsTotal counts packets reported in closed windows.
	PacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ifmon_packets_total",
			Help: "Total number of packets counted in closed reporting windows",
		},
		[]string{"interface"},
	)

	// BytesTotal counts captured bytes reported in closed windows.
	BytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ifmon_bytes_total",
			Help: "Total number of captured bytes counted in closed reporting windows",
		},
		[]string{"interface"},
	)

	// PacketsPerSecond is the rate of the last closed window.
	PacketsPerSecond = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ifmon_packets_per_second",
			Help: "Packet rate of the most recent reporting window",
		},
		[]string{"interface"},
	)

	// BytesPerSecond is the byte rate of the last closed window.
	BytesPerSecond = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ifmon_bytes_per_second",
			Help: "Byte rate of the most recent reporting window",
		},
		[]string{"interface"},
	)

	// WindowSeconds measures the actual length of reporting windows.
	WindowSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ifmon_window_seconds",
			Help:    "Measured duration of reporting windows in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"interface"},
	)

	// CaptureErrorsTotal counts fatal capture errors.
	CaptureErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ifmon_capture_errors_total",
			Help: "Total number of fatal capture errors",
		},
		[]string{"interface"},
	)

	// CaptureDrops tracks packets dropped by the capture handle.
	CaptureDrops = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ifmon_capture_drops",
			Help: "Packets dropped by the capture handle (kernel or interface)",
		},
		[]string{"interface", "stage"},
	)

	// SessionRunning is 1 while a monitoring session is active.
	SessionRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ifmon_session_running",
			Help: "Whether a monitoring session is active (1) or stopped (0)",
		},
		[]string{"interface"},
	)
)

// Sink exports the report stream as Prometheus series.
type Sink struct{}

// NewSink creates a metrics sink.
func NewSink() *Sink {
	return &Sink{}
}

// Name implements sink.Sink.
func (s *Sink) Name() string {
	return "metrics"
}

// Open implements sink.Sink.
func (s *Sink) Open(ctx context.Context, sess sink.Session) error {
	SessionRunning.WithLabelValues(sess.Interface).Set(1)
	return nil
}

// Emit implements sink.Sink.
func (s *Sink) Emit(ctx context.Context, rec sink.Record) error {
	w := rec.Window
	if w.Empty() {
		return nil
	}
	PacketsTotal.WithLabelValues(rec.Interface).Add(float64(w.Packets))
	BytesTotal.WithLabelValues(rec.Interface).Add(float64(w.Bytes))
	PacketsPerSecond.WithLabelValues(rec.Interface).Set(w.PacketsPerSecond)
	BytesPerSecond.WithLabelValues(rec.Interface).Set(w.BytesPerSecond)
	WindowSeconds.WithLabelValues(rec.Interface).Observe(w.Elapsed.Seconds())
	return nil
}

// Close implements sink.Sink.
func (s *Sink) Close(ctx context.Context, fin sink.Final) error {
	SessionRunning.WithLabelValues(fin.Interface).Set(0)
	return nil
}
