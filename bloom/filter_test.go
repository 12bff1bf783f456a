package bloom

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/seehuhn/mt19937"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newRNG(seed int64) *rand.Rand {
	src := mt19937.New()
	src.Seed(seed)
	return rand.New(src)
}

func TestNewPanicsOnZeroParams(t *testing.T) {
	require.Panics(t, func() { New(0, 3) })
	require.Panics(t, func() { New(1024, 0) })
}

func TestNewDefault(t *testing.T) {
	f := NewDefault()
	require.EqualValues(t, 1024, f.Size())
	require.EqualValues(t, 3, f.HashCount())
	require.Len(t, f.Serialize().BitArray, 128)
	require.Zero(t, f.SetBits())
}

func TestBitArrayLength(t *testing.T) {
	for size, want := range map[uint32]int{1: 1, 7: 1, 8: 1, 9: 2, 1023: 128, 1024: 128, 1025: 129} {
		require.Len(t, New(size, 1).Serialize().BitArray, want, "size %d", size)
	}
}

func TestSeededSHA256Positions(t *testing.T) {
	got := SeededSHA256{}.Positions(nil, "q5", 3, 1024)
	require.Equal(t, []uint32{955, 127, 502}, got)

	f := NewDefault()
	f.Insert("q5")
	want := make([]byte, 128)
	want[15] = 0x80
	want[62] = 0x40
	want[119] = 0x08
	require.Equal(t, ByteArray(want), f.Serialize().BitArray)
	require.Equal(t, 3, f.SetBits())
}

func TestInsertIdempotent(t *testing.T) {
	f := NewDefault()
	f.Insert("q1")
	before := f.Serialize()
	f.Insert("q1")
	require.Equal(t, before, f.Serialize())
}

func TestNoFalseNegatives(t *testing.T) {
	for _, family := range []HashFamily{SeededSHA256{}, DoubleHashing{}} {
		t.Run(fmt.Sprintf("%T", family), func(t *testing.T) {
			f := fuzz.NewWithSeed(1001).NilChance(0).NumElements(1, 300)
			for range 20 {
				var items []string
				f.Fuzz(&items)
				filter := New(2048, 4, WithHashFamily(family))
				for _, item := range items {
					filter.Insert(item)
				}
				for _, item := range items {
					require.True(t, filter.Contains(item), "item %q", item)
				}
			}
		})
	}
}

func TestFalsePositiveRate(t *testing.T) {
	const (
		m       = 1024
		k       = 3
		n       = 100
		samples = 20000
	)
	for _, family := range []HashFamily{SeededSHA256{}, DoubleHashing{}} {
		t.Run(fmt.Sprintf("%T", family), func(t *testing.T) {
			rng := newRNG(42)
			f := New(m, k, WithHashFamily(family))
			for i := range n {
				f.Insert(fmt.Sprintf("member-%d-%d", i, rng.Int63()))
			}
			fp := 0
			for i := range samples {
				if f.Contains(fmt.Sprintf("absent-%d-%d", i, rng.Int63())) {
					fp++
				}
			}
			expected := FalsePositiveRate(m, k, n)
			rate := float64(fp) / samples
			require.Greater(t, rate, expected/2)
			require.Less(t, rate, expected*2)
		})
	}
}

func TestMerge(t *testing.T) {
	a := NewDefault()
	b := NewDefault()
	setA := []string{"q1", "q2", "q3"}
	setB := []string{"q3", "q4", "e9"}
	for _, item := range setA {
		a.Insert(item)
	}
	for _, item := range setB {
		b.Insert(item)
	}

	ab := a.Clone()
	require.NoError(t, ab.Merge(b))
	ba := b.Clone()
	require.NoError(t, ba.Merge(a))
	require.Equal(t, ab.Serialize(), ba.Serialize())

	for _, item := range append(setA, setB...) {
		require.True(t, ab.Contains(item), item)
	}

	union := NewDefault()
	for _, item := range append(setA, setB...) {
		union.Insert(item)
	}
	require.Equal(t, union.Serialize(), ab.Serialize())

	// merging with itself changes nothing
	before := ab.Serialize()
	require.NoError(t, ab.Merge(ab.Clone()))
	require.Equal(t, before, ab.Serialize())
}

func TestMergeConfigMismatch(t *testing.T) {
	a := NewDefault()
	a.Insert("q1")
	before := a.Serialize()
	require.ErrorIs(t, a.Merge(New(2048, 3)), ErrConfigMismatch)
	require.ErrorIs(t, a.Merge(New(1024, 4)), ErrConfigMismatch)

	other := NewDefault(WithHashFamily(DoubleHashing{}))
	other.Insert("x")
	require.ErrorIs(t, a.Merge(other), ErrConfigMismatch)
	require.Equal(t, before, a.Serialize())

	same := NewDefault(WithHashFamily(DoubleHashing{}))
	require.NoError(t, same.Merge(other))
	require.True(t, same.Contains("x"))
}

func TestEstimateCount(t *testing.T) {
	f := NewDefault()
	require.Zero(t, f.EstimateCount())

	rng := newRNG(7)
	for _, n := range []int{10, 50, 100, 200} {
		f := NewDefault()
		for i := range n {
			f.Insert(fmt.Sprintf("item-%d-%d", i, rng.Int63()))
		}
		est := f.EstimateCount()
		require.InDelta(t, n, est, 0.2*float64(n), "n=%d", n)
		require.Equal(t, math.Round(est), est)
	}
}

func TestEstimateCountSaturated(t *testing.T) {
	s := Snapshot{BitArray: make(ByteArray, 2), Size: 10, HashCount: 2}
	s.BitArray[0] = 0xff
	s.BitArray[1] = 0xff
	f, err := Deserialize(s)
	require.NoError(t, err)
	require.True(t, f.Saturated())
	require.True(t, math.IsInf(f.EstimateCount(), 1))
	require.Equal(t, 10, f.SetBits())
}

func TestCloneIsIndependent(t *testing.T) {
	f := NewDefault()
	c := f.Clone()
	c.Insert("q1")
	require.False(t, f.Contains("q1"))
	require.True(t, c.Contains("q1"))
}

func TestFamiliesDiffer(t *testing.T) {
	a := NewDefault()
	b := NewDefault(WithHashFamily(DoubleHashing{}))
	a.Insert("exam-1")
	b.Insert("exam-1")
	require.NotEqual(t, a.Serialize(), b.Serialize())
}

func TestMarshalLogObject(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	f := NewDefault()
	f.Insert("q5")
	zap.New(core).Debug("built", zap.Object("filter", f))

	entries := logs.FilterMessage("built").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()["filter"].(map[string]any)
	require.EqualValues(t, 1024, fields["size"])
	require.EqualValues(t, 3, fields["hashCount"])
	require.EqualValues(t, 3, fields["setBits"])
}

func TestFilterJSON(t *testing.T) {
	f := New(16, 1)
	f.Insert("x")
	data, err := json.Marshal(f.Serialize())
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw["bitArray"], 2)
	require.EqualValues(t, 16, raw["size"])
	require.EqualValues(t, 1, raw["hashCount"])
}

func TestFamilyByName(t *testing.T) {
	f, err := FamilyByName(FamilySeededSHA256)
	require.NoError(t, err)
	require.Equal(t, SeededSHA256{}, f)
	f, err = FamilyByName("")
	require.NoError(t, err)
	require.Equal(t, SeededSHA256{}, f)
	f, err = FamilyByName(FamilyDoubleHashing)
	require.NoError(t, err)
	require.Equal(t, DoubleHashing{}, f)
	_, err = FamilyByName("md5")
	require.Error(t, err)
}
