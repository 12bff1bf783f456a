package bloomjoin

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/bloomgate/go-bloomgate/bloom"
	"github.com/bloomgate/go-bloomgate/metrics"
)

// DefaultStoreSize is the default number of channels a FilterStore keeps.
const DefaultStoreSize = 4096

// StoreOpt configures a FilterStore.
type StoreOpt func(*FilterStore)

// WithStoreLogger specifies the logger for the FilterStore.
func WithStoreLogger(logger *zap.Logger) StoreOpt {
	return func(s *FilterStore) {
		s.logger = logger
	}
}

// WithStoreMetrics reports the number of held filters under the given store
// name.
func WithStoreMetrics(name string) StoreOpt {
	return func(s *FilterStore) {
		s.held = storedFilters.WithLabelValues(name)
	}
}

var storedFilters = metrics.NewGauge(
	"stored_filters",
	subsystem,
	"Number of filters held by a filter store",
	[]string{"store"},
)

// FilterStore keeps the most recently published filter per channel (for
// example an exam or a site). Least recently used channels are evicted once
// the store is full. It is safe for concurrent use.
type FilterStore struct {
	logger *zap.Logger
	held   prometheus.Gauge
	cache  *lru.Cache[string, *bloom.Filter]
}

// NewFilterStore creates a store for up to size channels.
func NewFilterStore(size int, opts ...StoreOpt) *FilterStore {
	s := &FilterStore{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	cache, err := lru.NewWithEvict(size, func(channel string, _ *bloom.Filter) {
		s.logger.Debug("filter evicted", zap.String("channel", channel))
	})
	if err != nil {
		panic(fmt.Sprintf("BUG: failed to create filter store: %v", err))
	}
	s.cache = cache
	return s
}

// Publish replaces the filter of channel with a copy of f.
func (s *FilterStore) Publish(channel string, f *bloom.Filter) {
	s.cache.Add(channel, f.Clone())
	s.report()
	s.logger.Debug("filter published", zap.String("channel", channel), zap.Object("filter", f))
}

// Get returns a copy of the filter last published on channel.
func (s *FilterStore) Get(channel string) (*bloom.Filter, bool) {
	f, ok := s.cache.Get(channel)
	if !ok {
		return nil, false
	}
	return f.Clone(), true
}

// Remove drops the filter of channel.
func (s *FilterStore) Remove(channel string) bool {
	ok := s.cache.Remove(channel)
	s.report()
	return ok
}

func (s *FilterStore) report() {
	if s.held != nil {
		s.held.Set(float64(s.cache.Len()))
	}
}

// Len returns the number of channels held.
func (s *FilterStore) Len() int {
	return s.cache.Len()
}
