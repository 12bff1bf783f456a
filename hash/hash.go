// Package hash exposes the digest primitives the membership filters derive
// their bit positions from.
package hash

import (
	"strconv"

	"github.com/minio/sha256-simd"
)

const (
	// Size is an alias to minio sha256.Size (32 bytes).
	Size = sha256.Size
)

var (
	// New is an alias to minio sha256.New.
	New = sha256.New
	// Sum is an alias to minio sha256.Sum256.
	Sum = sha256.Sum256
)

// SumSeeded returns SHA-256 of the string "<seed>:<item>".
func SumSeeded(seed uint32, item string) [Size]byte {
	buf := make([]byte, 0, 11+len(item))
	buf = strconv.AppendUint(buf, uint64(seed), 10)
	buf = append(buf, ':')
	buf = append(buf, item...)
	return sha256.Sum256(buf)
}
