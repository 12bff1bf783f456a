package bloom

import (
	"fmt"
	"math"
	"math/bits"

	"go.uber.org/zap/zapcore"
)

const (
	// DefaultSize is the bit count of filters built with NewDefault.
	DefaultSize = 1024
	// DefaultHashCount is the probe count of filters built with NewDefault.
	DefaultHashCount = 3

	// maxInlineProbes bounds the probe count served from a stack buffer.
	maxInlineProbes = 16
)

// Opt configures a Filter.
type Opt func(*Filter)

// WithHashFamily sets the hash family used to derive probe positions.
func WithHashFamily(family HashFamily) Opt {
	return func(f *Filter) {
		f.family = family
	}
}

// Filter is a Bloom filter with a fixed number of bits and probes.
type Filter struct {
	bits   []byte
	size   uint32
	k      uint32
	family HashFamily
}

// New creates an empty filter with size bits and hashCount probes per item.
// Both must be positive.
func New(size, hashCount uint32, opts ...Opt) *Filter {
	if size == 0 || hashCount == 0 {
		panic(fmt.Sprintf("BUG: bad filter params: size %d hashCount %d", size, hashCount))
	}
	f := &Filter{
		bits:   make([]byte, BitsetBytes(size)),
		size:   size,
		k:      hashCount,
		family: SeededSHA256{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewDefault creates an empty filter of DefaultSize bits and DefaultHashCount
// probes.
func NewDefault(opts ...Opt) *Filter {
	return New(DefaultSize, DefaultHashCount, opts...)
}

// Size returns the number of bits in the filter.
func (f *Filter) Size() uint32 { return f.size }

// HashCount returns the number of probes per item.
func (f *Filter) HashCount() uint32 { return f.k }

func (f *Filter) positions(item string, buf *[maxInlineProbes]uint32) []uint32 {
	var dst []uint32
	if f.k <= maxInlineProbes {
		dst = buf[:0]
	}
	return f.family.Positions(dst, item, f.k, f.size)
}

// Insert adds item to the filter.
func (f *Filter) Insert(item string) {
	var buf [maxInlineProbes]uint32
	for _, p := range f.positions(item, &buf) {
		f.bits[p>>3] |= 1 << (p & 7)
	}
}

// Contains reports whether item may have been inserted. A false result is
// definite.
func (f *Filter) Contains(item string) bool {
	var buf [maxInlineProbes]uint32
	for _, p := range f.positions(item, &buf) {
		if f.bits[p>>3]&(1<<(p&7)) == 0 {
			return false
		}
	}
	return true
}

// Merge ORs other into f. Both filters must have the same size, hash count
// and hash family.
func (f *Filter) Merge(other *Filter) error {
	if f.size != other.size || f.k != other.k {
		return fmt.Errorf("%w: %d/%d vs %d/%d", ErrConfigMismatch,
			f.size, f.k, other.size, other.k)
	}
	if f.family != other.family {
		return fmt.Errorf("%w: hash family %T vs %T", ErrConfigMismatch, f.family, other.family)
	}
	for i, b := range other.bits {
		f.bits[i] |= b
	}
	return nil
}

// SetBits returns the number of bits set in the filter.
func (f *Filter) SetBits() int {
	n := 0
	for _, b := range f.bits {
		n += bits.OnesCount8(b)
	}
	return n
}

// Saturated reports whether every bit of the filter is set.
func (f *Filter) Saturated() bool {
	return f.SetBits() >= int(f.size)
}

// EstimateCount returns the estimated number of distinct inserted items,
// round(-(m/k) * ln(1 - X/m)) where X is the number of set bits.
// It is 0 for an empty filter and +Inf for a saturated one.
func (f *Filter) EstimateCount() float64 {
	x := f.SetBits()
	switch {
	case x == 0:
		return 0
	case x >= int(f.size):
		return math.Inf(1)
	}
	m := float64(f.size)
	return math.Round(-(m / float64(f.k)) * math.Log(1-float64(x)/m))
}

// Clone returns a deep copy of f.
func (f *Filter) Clone() *Filter {
	c := *f
	c.bits = append([]byte(nil), f.bits...)
	return &c
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (f *Filter) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint32("size", f.size)
	enc.AddUint32("hashCount", f.k)
	enc.AddInt("setBits", f.SetBits())
	enc.AddFloat64("estimate", f.EstimateCount())
	return nil
}
