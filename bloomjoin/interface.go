package bloomjoin

import "github.com/bloomgate/go-bloomgate/bloom"

//go:generate mockgen -typed -package=bloomjoin -destination=./mocks_test.go -source=./interface.go

// Tracer tracks the progress of reconciliation rounds.
type Tracer interface {
	// OnFilterBuilt is called after a filter is built from the changed ids.
	OnFilterBuilt(f *bloom.Filter, ids int)
	// OnFiltered is called after a replica record set was narrowed down to
	// its candidates.
	OnFiltered(records, candidates int)
	// OnDelta is called after the delta between master and candidates was
	// computed.
	OnDelta(compared, toSync int)
}
