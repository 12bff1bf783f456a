package bloom

import "math"

// BitsetBytes returns ceil(m/8).
func BitsetBytes(m uint32) int {
	return int((uint64(m) + 7) / 8)
}

// FalsePositiveRate returns the expected false positive probability
// (1 - e^(-kn/m))^k of a filter with m bits and k probes holding n items.
func FalsePositiveRate(m, k uint32, n int) float64 {
	if m == 0 || k == 0 {
		return 1
	}
	if n <= 0 {
		return 0
	}
	return math.Pow(1-math.Exp(-float64(k)*float64(n)/float64(m)), float64(k))
}

// OptimalParams returns the bit count and probe count that keep the false
// positive rate of a filter holding n items at or below fpr.
func OptimalParams(n int, fpr float64) (m, k uint32) {
	if n < 1 {
		n = 1
	}
	if fpr <= 0 || fpr >= 1 {
		panic("BUG: false positive rate must be in (0, 1)")
	}
	bits := math.Ceil(-float64(n) * math.Log(fpr) / (math.Ln2 * math.Ln2))
	if bits > math.MaxUint32 {
		bits = math.MaxUint32
	}
	m = uint32(bits)
	k = uint32(math.Round(float64(m) / float64(n) * math.Ln2))
	if k < 1 {
		k = 1
	}
	return m, k
}

// HashCount returns the smallest probe count keeping a filter of m bits that
// holds n items at or below fpr. When no count below the optimum reaches fpr
// the optimum round(m/n*ln2) is returned.
func HashCount(m uint32, n int, fpr float64) uint32 {
	if n < 1 {
		n = 1
	}
	best := uint32(math.Round(float64(m) / float64(n) * math.Ln2))
	if best < 1 {
		best = 1
	}
	for k := uint32(1); k < best; k++ {
		if FalsePositiveRate(m, k, n) <= fpr {
			return k
		}
	}
	return best
}
