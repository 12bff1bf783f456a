package bloom

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spacemeshos/go-scale"
)

// MaxSnapshotBytes bounds the bit array accepted from the wire.
const MaxSnapshotBytes = 1 << 20

// ByteArray is a byte slice that encodes to JSON as an array of numbers
// rather than base64.
type ByteArray []byte

// MarshalJSON implements json.Marshaler.
func (b ByteArray) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("[]"), nil
	}
	out := make([]byte, 0, 2+4*len(b))
	out = append(out, '[')
	for i, v := range b {
		if i > 0 {
			out = append(out, ',')
		}
		out = strconv.AppendUint(out, uint64(v), 10)
	}
	return append(out, ']'), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *ByteArray) UnmarshalJSON(data []byte) error {
	var nums []int
	if err := json.Unmarshal(data, &nums); err != nil {
		return fmt.Errorf("%w: bitArray: %w", ErrMalformedSnapshot, err)
	}
	out := make([]byte, len(nums))
	for i, n := range nums {
		if n < 0 || n > 255 {
			return fmt.Errorf("%w: bitArray[%d] = %d is not a byte", ErrMalformedSnapshot, i, n)
		}
		out[i] = byte(n)
	}
	*b = out
	return nil
}

// Snapshot is the transport form of a Filter.
type Snapshot struct {
	BitArray  ByteArray `json:"bitArray"`
	Size      uint32    `json:"size"`
	HashCount uint32    `json:"hashCount"`
}

// Validate checks that s describes a filter.
func (s *Snapshot) Validate() error {
	switch {
	case s.Size == 0:
		return fmt.Errorf("%w: zero size", ErrMalformedSnapshot)
	case s.HashCount == 0:
		return fmt.Errorf("%w: zero hash count", ErrMalformedSnapshot)
	case len(s.BitArray) != BitsetBytes(s.Size):
		return fmt.Errorf("%w: bit array of %d bytes for size %d (want %d)",
			ErrMalformedSnapshot, len(s.BitArray), s.Size, BitsetBytes(s.Size))
	}
	return nil
}

// EncodeScale implements scale.Encodable.
func (s *Snapshot) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeCompact32(enc, s.Size)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact32(enc, s.HashCount)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByteSliceWithLimit(enc, s.BitArray, MaxSnapshotBytes)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale.Decodable.
func (s *Snapshot) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		field, n, err := scale.DecodeCompact32(dec)
		if err != nil {
			return total, err
		}
		total += n
		s.Size = field
	}
	{
		field, n, err := scale.DecodeCompact32(dec)
		if err != nil {
			return total, err
		}
		total += n
		s.HashCount = field
	}
	{
		field, n, err := scale.DecodeByteSliceWithLimit(dec, MaxSnapshotBytes)
		if err != nil {
			return total, err
		}
		total += n
		s.BitArray = field
	}
	return total, nil
}

// Serialize returns a snapshot of f. The snapshot does not share memory
// with f.
func (f *Filter) Serialize() Snapshot {
	return Snapshot{
		BitArray:  append(ByteArray(nil), f.bits...),
		Size:      f.size,
		HashCount: f.k,
	}
}

// Deserialize reconstructs a filter from s. Bits beyond Size in the last byte
// are cleared.
func Deserialize(s Snapshot, opts ...Opt) (*Filter, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	f := New(s.Size, s.HashCount, opts...)
	copy(f.bits, s.BitArray)
	if rem := s.Size & 7; rem != 0 {
		f.bits[len(f.bits)-1] &= byte(1<<rem) - 1
	}
	return f, nil
}
