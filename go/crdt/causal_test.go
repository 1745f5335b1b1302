package crdt

import (
	"testing"
	"time"

	"github.com/giantt-project/convergent/go/value"
	"github.com/stretchr/testify/require"
)

func TestObservedBy(t *testing.T) {
	var e = env(AddItem{ItemID: "x", ItemType: "GianttItem"}, "D1", 5, time.Now(), value.Horizon{})
	var f1 = env(RemoveItem{ItemID: "x"}, "D2", 1, time.Now(), value.Horizon{"D1": 5})
	var f2 = env(RemoveItem{ItemID: "x"}, "D2", 1, time.Now(), value.Horizon{"D1": 4})

	require.True(t, ObservedBy(e, f1))
	require.False(t, ObservedBy(e, f2))
}

func TestHorizonMonotonicityAcrossAppends(t *testing.T) {
	var t0 = time.Now()
	var log []Envelope
	var h = value.Horizon{}

	for i := 1; i <= 5; i++ {
		var e = env(AddItem{ItemID: "x"}, "D1", value.LogicalClock(i), t0, value.Horizon{})
		log = append(log, e)
		var next = CurrentHorizon(log)
		require.GreaterOrEqual(t, next.Get("D1"), h.Get("D1"))
		h = next
	}
}
