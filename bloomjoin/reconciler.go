// Package bloomjoin implements the three step filter join used to find the
// records a replica site has to refresh from the master site.
//
// The master summarizes the ids it changed in a bloom filter (BuildFilter).
// The replica narrows its local records down to the candidates passing the
// filter (FilterRecords), which never drops a true match but may keep false
// positives. The master then compares its records with the candidates by
// content (ComputeDelta) and reports its own version of every record that
// differs.
package bloomjoin

import (
	"fmt"

	"github.com/axiomhq/hyperloglog"
	"go.uber.org/zap"

	"github.com/bloomgate/go-bloomgate/bloom"
)

// Opt configures a Reconciler.
type Opt func(*config)

type config struct {
	logger  *zap.Logger
	size    uint32
	k       uint32
	family  bloom.HashFamily
	autoFPR float64
	equal   EqualFunc
	tracer  Tracer
}

// WithLogger specifies the logger for the Reconciler.
func WithLogger(logger *zap.Logger) Opt {
	return func(c *config) {
		c.logger = logger
	}
}

// WithFilterParams sets the bit count and probe count of built filters.
func WithFilterParams(size, hashCount uint32) Opt {
	return func(c *config) {
		c.size = size
		c.k = hashCount
	}
}

// WithHashFamily sets the hash family of built and received filters.
func WithHashFamily(family bloom.HashFamily) Opt {
	return func(c *config) {
		c.family = family
	}
}

// WithAutoSizing makes BuildFilter size each filter for the estimated number
// of distinct ids so that its false positive rate stays near fpr. Filters are
// never made smaller than the configured size.
func WithAutoSizing(fpr float64) Opt {
	return func(c *config) {
		c.autoFPR = fpr
	}
}

// WithEqual replaces CanonicalEqual as the content comparison of records.
func WithEqual(eq EqualFunc) Opt {
	return func(c *config) {
		c.equal = eq
	}
}

// WithTracer specifies a tracer for the Reconciler.
func WithTracer(t Tracer) Opt {
	return func(c *config) {
		c.tracer = t
	}
}

// Delta lists the master records that differ from the replica's candidates.
type Delta[R Record] struct {
	Updated []R `json:"updated"`
	ToSync  []R `json:"toSync"`
}

// JoinResult is the outcome of a complete join round.
type JoinResult[R Record] struct {
	Filter          bloom.Snapshot `json:"filter"`
	MatchingRecords []R            `json:"matchingRecords"`
	SyncRequired    []R            `json:"syncRequired"`
}

// Reconciler runs join rounds over records of type R. It holds no state
// between calls and is safe for concurrent use.
type Reconciler[R Record] struct {
	config
}

// New creates a Reconciler.
func New[R Record](opts ...Opt) *Reconciler[R] {
	r := &Reconciler[R]{
		config: config{
			logger: zap.NewNop(),
			size:   bloom.DefaultSize,
			k:      bloom.DefaultHashCount,
			family: bloom.SeededSHA256{},
			equal:  CanonicalEqual,
			tracer: nullTracer{},
		},
	}
	for _, opt := range opts {
		opt(&r.config)
	}
	if r.size == 0 || r.k == 0 {
		panic(fmt.Sprintf("BUG: bad filter params: size %d hashCount %d", r.size, r.k))
	}
	if r.autoFPR < 0 || r.autoFPR >= 1 {
		panic(fmt.Sprintf("BUG: bad false positive rate %v", r.autoFPR))
	}
	return r
}

func (r *Reconciler[R]) filterParams(ids []string) (size, k uint32) {
	if r.autoFPR == 0 {
		return r.size, r.k
	}
	sk := hyperloglog.New()
	for _, id := range ids {
		sk.Insert([]byte(id))
	}
	n := int(sk.Estimate())
	size, k = bloom.OptimalParams(n, r.autoFPR)
	if size < r.size {
		size = r.size
		k = bloom.HashCount(size, n, r.autoFPR)
	}
	return size, k
}

// BuildFilter creates a filter holding every id.
func (r *Reconciler[R]) BuildFilter(ids []string) *bloom.Filter {
	size, k := r.filterParams(ids)
	f := bloom.New(size, k, bloom.WithHashFamily(r.family))
	for _, id := range ids {
		f.Insert(id)
	}
	r.logger.Debug("filter built", zap.Int("ids", len(ids)), zap.Object("filter", f))
	r.tracer.OnFilterBuilt(f, len(ids))
	return f
}

// Decode restores a filter received from a peer, using the Reconciler's hash
// family.
func (r *Reconciler[R]) Decode(s bloom.Snapshot) (*bloom.Filter, error) {
	return bloom.Deserialize(s, bloom.WithHashFamily(r.family))
}

// FilterRecords returns the records whose id passes f, in input order.
func (r *Reconciler[R]) FilterRecords(records []R, f *bloom.Filter) []R {
	out := make([]R, 0)
	for _, rec := range records {
		if f.Contains(rec.RecordID()) {
			out = append(out, rec)
		}
	}
	r.logger.Debug("records filtered",
		zap.Int("records", len(records)),
		zap.Int("candidates", len(out)),
	)
	r.tracer.OnFiltered(len(records), len(out))
	return out
}

// ComputeDelta compares each master record with the candidate of the same id
// and reports the master version of those that differ. Master records without
// a candidate and candidates without a master record are ignored. If
// candidates repeat an id, the last one is used.
func (r *Reconciler[R]) ComputeDelta(master, candidates []R) Delta[R] {
	byID := make(map[string]R, len(candidates))
	for _, c := range candidates {
		byID[c.RecordID()] = c
	}
	d := Delta[R]{Updated: make([]R, 0), ToSync: make([]R, 0)}
	compared := 0
	for _, m := range master {
		c, ok := byID[m.RecordID()]
		if !ok {
			continue
		}
		compared++
		if !r.equal(m, c) {
			d.Updated = append(d.Updated, m)
			d.ToSync = append(d.ToSync, m)
		}
	}
	r.logger.Debug("delta computed",
		zap.Int("master", len(master)),
		zap.Int("compared", compared),
		zap.Int("to sync", len(d.ToSync)),
	)
	r.tracer.OnDelta(compared, len(d.ToSync))
	return d
}

// PerformJoin runs a complete round: it builds a filter from changedIDs,
// narrows site down to the candidates and computes the delta against master.
func (r *Reconciler[R]) PerformJoin(master, site []R, changedIDs []string) JoinResult[R] {
	f := r.BuildFilter(changedIDs)
	matching := r.FilterRecords(site, f)
	return JoinResult[R]{
		Filter:          f.Serialize(),
		MatchingRecords: matching,
		SyncRequired:    r.ComputeDelta(master, matching).ToSync,
	}
}
