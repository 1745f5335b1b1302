package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueJSONRoundTrip(t *testing.T) {
	var cases = []Value{
		NewString("hello"),
		NewInt(42),
		NewFloat(1.5),
		NewBool(true),
		NewStruct(map[string]Value{
			"a": NewInt(1),
			"b": NewString("nested"),
		}),
	}
	for _, v := range cases {
		var encoded, err = json.Marshal(v)
		require.NoError(t, err)

		var decoded Value
		require.NoError(t, json.Unmarshal(encoded, &decoded))
		require.True(t, v.Equal(decoded), "round trip of %+v produced %+v", v, decoded)
	}
}

func TestValueMalformedRejected(t *testing.T) {
	var decoded Value
	require.ErrorIs(t, json.Unmarshal([]byte(`{}`), &decoded), ErrMalformedValue)
	require.ErrorIs(t, json.Unmarshal([]byte(`{"String":"a","Int":1}`), &decoded), ErrMalformedValue)
	require.ErrorIs(t, json.Unmarshal([]byte(`not json`), &decoded), ErrMalformedValue)
}

func TestValueEqualityIsStructural(t *testing.T) {
	var a = NewStruct(map[string]Value{"x": NewInt(1), "y": NewString("z")})
	var b = NewStruct(map[string]Value{"y": NewString("z"), "x": NewInt(1)})
	require.True(t, a.Equal(b))
}

func TestValueCompareOrdersByTagThenEncoding(t *testing.T) {
	require.Equal(t, -1, NewBool(true).Compare(NewFloat(1)))
	require.Less(t, NewInt(1).Compare(NewInt(2)), 0)
	require.Equal(t, 0, NewInt(5).Compare(NewInt(5)))
}

func TestHorizonMergeIsPointwiseMax(t *testing.T) {
	var h1 = Horizon{"d1": 3, "d2": 1}
	var h2 = Horizon{"d1": 2, "d3": 5}
	var merged = h1.Merge(h2)
	require.Equal(t, LogicalClock(3), merged.Get("d1"))
	require.Equal(t, LogicalClock(1), merged.Get("d2"))
	require.Equal(t, LogicalClock(5), merged.Get("d3"))
}

func TestHorizonAdvanceNeverDecreases(t *testing.T) {
	var h = Horizon{"d1": 5}
	require.Equal(t, LogicalClock(5), h.Advance("d1", 3).Get("d1"))
	require.Equal(t, LogicalClock(7), h.Advance("d1", 7).Get("d1"))
}
