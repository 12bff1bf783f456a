package hash

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/zeebo/blake3"
)

// Pool is a global blake3 hasher pool. It is meant to amortize allocations
// of blake3 hashers over time by allowing clients to reuse them.
var pool = &sync.Pool{
	New: func() any {
		return blake3.New()
	},
}

// GetHasher will get a blake3 hasher from the pool.
// It may or may not allocate a new one. Consumers are expected
// to call Reset() on the hasher before putting it back in
// the pool.
func GetHasher() *blake3.Hasher {
	return pool.Get().(*blake3.Hasher)
}

// PutHasher returns the hasher back to the pool.
// Consumers are expected to call Reset() on the
// instance before putting it back in the pool.
func PutHasher(hasher *blake3.Hasher) {
	pool.Put(hasher)
}

// Sum128 returns the first 16 bytes of the blake3 digest of item as two
// big-endian words.
func Sum128(item string) (hi, lo uint64) {
	h := GetHasher()
	defer func() {
		h.Reset()
		PutHasher(h)
	}()
	io.WriteString(h, item)
	var out [32]byte
	h.Sum(out[:0])
	return binary.BigEndian.Uint64(out[0:8]), binary.BigEndian.Uint64(out[8:16])
}
