package bloom

import (
	"encoding/binary"
	"fmt"

	"github.com/bloomgate/go-bloomgate/hash"
)

// HashFamily derives the k probe positions of an item in a filter of m bits.
// Both ends of a channel must use the same family; it is not carried in the
// snapshot.
type HashFamily interface {
	// Positions appends k positions in [0, m) to dst and returns it.
	Positions(dst []uint32, item string, k, m uint32) []uint32
}

// SeededSHA256 computes probe i as SHA-256("<i>:<item>") reduced modulo m,
// using the first four digest bytes as a big-endian integer.
// This is the family used by existing peers.
type SeededSHA256 struct{}

func (SeededSHA256) Positions(dst []uint32, item string, k, m uint32) []uint32 {
	for i := uint32(0); i < k; i++ {
		sum := hash.SumSeeded(i, item)
		dst = append(dst, binary.BigEndian.Uint32(sum[:4])%m)
	}
	return dst
}

// DoubleHashing computes probe i as (h1 + i*h2) mod m where h1 and h2 are
// taken from a single BLAKE3 digest of the item.
type DoubleHashing struct{}

func (DoubleHashing) Positions(dst []uint32, item string, k, m uint32) []uint32 {
	h1, h2 := hash.Sum128(item)
	if h2 == 0 {
		h2 = 1
	}
	for i := uint64(0); i < uint64(k); i++ {
		dst = append(dst, uint32((h1+i*h2)%uint64(m)))
	}
	return dst
}

const (
	// FamilySeededSHA256 names the SeededSHA256 family.
	FamilySeededSHA256 = "seeded-sha256"
	// FamilyDoubleHashing names the DoubleHashing family.
	FamilyDoubleHashing = "double-blake3"
)

// FamilyByName returns the hash family registered under name.
func FamilyByName(name string) (HashFamily, error) {
	switch name {
	case FamilySeededSHA256, "":
		return SeededSHA256{}, nil
	case FamilyDoubleHashing:
		return DoubleHashing{}, nil
	}
	return nil, fmt.Errorf("bloom: unknown hash family %q", name)
}
