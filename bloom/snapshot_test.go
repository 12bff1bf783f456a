package bloom

import (
	"encoding/json"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/require"

	"github.com/bloomgate/go-bloomgate/codec"
)

func TestSnapshotJSONFormat(t *testing.T) {
	s := Snapshot{BitArray: ByteArray{0, 128, 255}, Size: 24, HashCount: 3}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.JSONEq(t, `{"bitArray":[0,128,255],"size":24,"hashCount":3}`, string(data))
	require.Equal(t, `{"bitArray":[0,128,255],"size":24,"hashCount":3}`, string(data))

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, s, decoded)
}

func TestSnapshotJSONRejectsNonBytes(t *testing.T) {
	for _, input := range []string{
		`{"bitArray":[256],"size":8,"hashCount":1}`,
		`{"bitArray":[-1],"size":8,"hashCount":1}`,
		`{"bitArray":"AAE=","size":8,"hashCount":1}`,
	} {
		var s Snapshot
		require.ErrorIs(t, json.Unmarshal([]byte(input), &s), ErrMalformedSnapshot, input)
	}
}

func TestRoundTrip(t *testing.T) {
	f := fuzz.NewWithSeed(1001).NilChance(0).NumElements(1, 200)
	for range 10 {
		var items []string
		f.Fuzz(&items)
		filter := NewDefault()
		for _, item := range items {
			filter.Insert(item)
		}

		data, err := json.Marshal(filter.Serialize())
		require.NoError(t, err)
		var s Snapshot
		require.NoError(t, json.Unmarshal(data, &s))
		restored, err := Deserialize(s)
		require.NoError(t, err)
		require.Equal(t, filter.Serialize(), restored.Serialize())

		var probes []string
		f.Fuzz(&probes)
		for _, item := range append(items, probes...) {
			require.Equal(t, filter.Contains(item), restored.Contains(item), item)
		}
	}
}

func TestSnapshotScale(t *testing.T) {
	filter := New(1000, 5)
	for _, id := range []string{"q1", "q2", "q3"} {
		filter.Insert(id)
	}
	s := filter.Serialize()
	buf, err := codec.Encode(&s)
	require.NoError(t, err)

	var decoded Snapshot
	require.NoError(t, codec.Decode(buf, &decoded))
	require.Equal(t, s, decoded)

	restored, err := Deserialize(decoded)
	require.NoError(t, err)
	require.True(t, restored.Contains("q2"))

	require.Error(t, codec.Decode(buf[:len(buf)-1], &decoded))
	require.Error(t, codec.Decode(append(buf, 0), &decoded))
}

func TestDeserializeMalformed(t *testing.T) {
	for name, s := range map[string]Snapshot{
		"zero size":       {BitArray: ByteArray{}, Size: 0, HashCount: 3},
		"zero hash count": {BitArray: make(ByteArray, 128), Size: 1024, HashCount: 0},
		"short":           {BitArray: make(ByteArray, 127), Size: 1024, HashCount: 3},
		"long":            {BitArray: make(ByteArray, 129), Size: 1024, HashCount: 3},
		"nil":             {Size: 8, HashCount: 1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Deserialize(s)
			require.ErrorIs(t, err, ErrMalformedSnapshot)
		})
	}
}

func TestDeserializeMasksPadding(t *testing.T) {
	f, err := Deserialize(Snapshot{BitArray: ByteArray{0x00, 0xff}, Size: 10, HashCount: 1})
	require.NoError(t, err)
	require.Equal(t, ByteArray{0x00, 0x03}, f.Serialize().BitArray)
	require.Equal(t, 2, f.SetBits())
}

func TestSerializeDoesNotAlias(t *testing.T) {
	f := NewDefault()
	s := f.Serialize()
	s.BitArray[0] = 0xff
	require.Zero(t, f.SetBits())

	g, err := Deserialize(s)
	require.NoError(t, err)
	s.BitArray[1] = 0xff
	require.Equal(t, 8, g.SetBits())
}
