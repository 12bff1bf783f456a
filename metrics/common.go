package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the basic namespace where all metrics are defined under.
	Namespace = "bloomgate"
)

// NewCounter creates a Counter metrics under the global namespace.
func NewCounter(name, subsystem, help string, labels []string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{Namespace: Namespace, Subsystem: subsystem, Name: name, Help: help}, labels)
}

// NewGauge creates a Gauge metrics under the global namespace.
func NewGauge(name, subsystem, help string, labels []string) *prometheus.GaugeVec {
	return promauto.NewGaugeVec(prometheus.GaugeOpts{Namespace: Namespace, Subsystem: subsystem, Name: name, Help: help}, labels)
}

// NewHistogram creates a Histogram metrics under the global namespace.
func NewHistogram(name, subsystem, help string, labels []string) *prometheus.HistogramVec {
	return promauto.NewHistogramVec(prometheus.HistogramOpts{Namespace: Namespace, Subsystem: subsystem, Name: name, Help: help}, labels)
}

// NewHistogramWithBuckets creates a Histogram metrics with custom buckets.
func NewHistogramWithBuckets(name, subsystem, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	return promauto.NewHistogramVec(prometheus.HistogramOpts{Namespace: Namespace, Subsystem: subsystem, Name: name, Help: help, Buckets: buckets}, labels)
}

// syncLag measures the time between a modification being recorded on the
// master and a site acknowledging it. Metrics are labeled by change type and
// sign. Sign is "neg" when the acknowledgement carries a time before the
// modification, which happens when site clocks drift.
var syncLag = NewHistogramWithBuckets(
	"sync_lag_seconds",
	"",
	"Observed delay between a modification and its acknowledgement by a site",
	[]string{"change_type", "sign"},
	prometheus.ExponentialBuckets(0.1, 2, 16),
)

// ReportSyncLag records the delivery delay of one modification.
func ReportSyncLag(changeType string, lag time.Duration) {
	seconds := lag.Seconds()
	sign := "pos"
	if seconds < 0 {
		sign = "neg"
		seconds = -seconds
	}
	syncLag.WithLabelValues(changeType, sign).Observe(seconds)
}
