package crdt

import (
	"testing"
	"time"

	"github.com/giantt-project/convergent/go/value"
	"github.com/stretchr/testify/require"
)

func env(op Operation, author value.DeviceId, clock value.LogicalClock, ts time.Time, horizon value.Horizon) Envelope {
	return AuthorLocal(op, author, clock, ts, horizon)
}

// Scenario 1 from spec.md §8: a concurrent SetField survives a RemoveItem
// that did not observe it.
func TestConcurrentAddThenInformedRemove(t *testing.T) {
	var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var eAdd = env(AddItem{ItemID: "x", ItemType: "GianttItem"}, "D1", 1, t0, value.Horizon{})
	var eSet = env(SetField{ItemID: "x", Field: "title", Value: value.NewString("Hello")}, "D2", 1, t0.Add(time.Second), value.Horizon{"D1": 1})
	var eRemove = env(RemoveItem{ItemID: "x"}, "D1", 2, t0.Add(2*time.Second), value.Horizon{"D1": 1})

	var doc = Materialize([]Envelope{eAdd, eSet, eRemove})
	require.Contains(t, doc.Items, "x")
	require.Equal(t, "Hello", mustString(t, doc.Items["x"].Scalars["title"].Value))
}

// Scenario 2: a sequential remove that observed everything leaves the
// item un-materialized.
func TestSequentialRemove(t *testing.T) {
	var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var eAdd = env(AddItem{ItemID: "x", ItemType: "GianttItem"}, "D1", 1, t0, value.Horizon{})
	var eSet = env(SetField{ItemID: "x", Field: "title", Value: value.NewString("A")}, "D1", 2, t0.Add(time.Second), value.Horizon{"D1": 1})
	var eRemove = env(RemoveItem{ItemID: "x"}, "D1", 3, t0.Add(2*time.Second), value.Horizon{"D1": 2})

	var doc = Materialize([]Envelope{eAdd, eSet, eRemove})
	require.NotContains(t, doc.Items, "x")
}

// Scenario 3: RemoveFromSet only removes the add op_ids it lists;
// concurrent adds of the same element survive.
func TestSetRemoveWithObservedIds(t *testing.T) {
	var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var eAdd = env(AddItem{ItemID: "x", ItemType: "GianttItem"}, "D1", 1, t0, value.Horizon{})
	var alpha = env(AddToSet{ItemID: "x", SetName: "tags", Element: value.NewString("red")}, "D1", 2, t0.Add(time.Second), value.Horizon{"D1": 1})
	var beta = env(AddToSet{ItemID: "x", SetName: "tags", Element: value.NewString("red")}, "D2", 1, t0.Add(time.Second), value.Horizon{"D1": 1})
	var remove = env(RemoveFromSet{
		ItemID: "x", SetName: "tags", Element: value.NewString("red"),
		ObservedAddIds: []value.OpId{alpha.OpId},
	}, "D1", 3, t0.Add(2*time.Second), value.Horizon{"D1": 2})

	var doc = Materialize([]Envelope{eAdd, alpha, beta, remove})
	require.Contains(t, doc.Items["x"].Sets["tags"], string(value.NewString("red").CanonicalEncode()))
	var elem = doc.Items["x"].Sets["tags"][string(value.NewString("red").CanonicalEncode())]
	require.Equal(t, []value.OpId{beta.OpId}, elem.SurvivingAddIds)
}

func TestLastWriterWinsTieBreak(t *testing.T) {
	var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var eAdd = env(AddItem{ItemID: "x", ItemType: "GianttItem"}, "D1", 1, t0, value.Horizon{})
	var a = env(SetField{ItemID: "x", Field: "title", Value: value.NewString("A")}, "D1", 1, t0, value.Horizon{})
	var b = env(SetField{ItemID: "x", Field: "title", Value: value.NewString("B")}, "D2", 1, t0, value.Horizon{})

	var doc = Materialize([]Envelope{eAdd, a, b})
	require.Equal(t, "B", mustString(t, doc.Items["x"].Scalars["title"].Value)) // D2 > D1
}

func TestMaterializeIsOrderIndependent(t *testing.T) {
	var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var eAdd = env(AddItem{ItemID: "x", ItemType: "GianttItem"}, "D1", 1, t0, value.Horizon{})
	var eSet = env(SetField{ItemID: "x", Field: "title", Value: value.NewString("A")}, "D1", 2, t0.Add(time.Second), value.Horizon{"D1": 1})
	var eTag = env(AddToSet{ItemID: "x", SetName: "tags", Element: value.NewString("urgent")}, "D1", 3, t0.Add(2*time.Second), value.Horizon{"D1": 2})

	var forward = Materialize([]Envelope{eAdd, eSet, eTag})
	var backward = Materialize([]Envelope{eTag, eSet, eAdd})

	h1, err := StateHash(forward)
	require.NoError(t, err)
	h2, err := StateHash(backward)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func mustString(t *testing.T, v value.Value) string {
	t.Helper()
	var s, ok = v.AsString()
	require.True(t, ok)
	return s
}
