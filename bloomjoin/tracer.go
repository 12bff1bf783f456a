package bloomjoin

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bloomgate/go-bloomgate/bloom"
	"github.com/bloomgate/go-bloomgate/metrics"
)

const subsystem = "bloomjoin"

type nullTracer struct{}

func (nullTracer) OnFilterBuilt(*bloom.Filter, int) {}
func (nullTracer) OnFiltered(int, int)              {}
func (nullTracer) OnDelta(int, int)                 {}

var (
	filtersBuilt = metrics.NewCounter(
		"filters_built_total",
		subsystem,
		"Number of filters built from changed ids",
		[]string{},
	)
	filterFill = metrics.NewHistogramWithBuckets(
		"filter_fill_ratio",
		subsystem,
		"Fraction of set bits in built filters",
		[]string{},
		prometheus.LinearBuckets(0.05, 0.05, 20),
	)
	recordsSeen = metrics.NewCounter(
		"records_total",
		subsystem,
		"Number of records passed through each reconciliation step",
		[]string{"step"},
	)
	recordsFiltered = recordsSeen.WithLabelValues("filtered")
	recordsMatched  = recordsSeen.WithLabelValues("matched")
	recordsCompared = recordsSeen.WithLabelValues("compared")
	recordsToSync   = recordsSeen.WithLabelValues("to_sync")
)

// MetricsTracer reports reconciliation progress to prometheus.
type MetricsTracer struct{}

var _ Tracer = MetricsTracer{}

func (MetricsTracer) OnFilterBuilt(f *bloom.Filter, _ int) {
	filtersBuilt.WithLabelValues().Inc()
	filterFill.WithLabelValues().Observe(float64(f.SetBits()) / float64(f.Size()))
}

func (MetricsTracer) OnFiltered(records, candidates int) {
	recordsFiltered.Add(float64(records))
	recordsMatched.Add(float64(candidates))
}

func (MetricsTracer) OnDelta(compared, toSync int) {
	recordsCompared.Add(float64(compared))
	recordsToSync.Add(float64(toSync))
}
