package taskgraph

import (
	"testing"
	"time"

	"github.com/giantt-project/convergent/go/crdt"
	"github.com/giantt-project/convergent/go/value"
	"github.com/stretchr/testify/require"
)

func docWith(ops ...crdt.Operation) crdt.DocumentState {
	var log []crdt.Envelope
	for _, op := range ops {
		log = append(log, crdt.AuthorLocal(op, "D1", 1, time.Unix(0, 0), value.Horizon{}))
	}
	return crdt.Materialize(log)
}

func TestRequiresEmitsBidirectionalPair(t *testing.T) {
	var doc = docWith(NewGianttItem("a"), NewGianttItem("b"))
	ops, err := Requires(doc, "a", "b")
	require.NoError(t, err)
	require.Len(t, ops, 2)
	require.Equal(t, crdt.AddToSet{ItemID: "a", SetName: SetRequires, Element: value.NewString("b")}, ops[0])
	require.Equal(t, crdt.AddToSet{ItemID: "b", SetName: SetBlocks, Element: value.NewString("a")}, ops[1])
}

func TestRequiresRefusesCycle(t *testing.T) {
	// a already REQUIRES b, so asking for b REQUIRES a would close a cycle.
	var doc = docWith(
		NewGianttItem("a"),
		NewGianttItem("b"),
		crdt.AddToSet{ItemID: "a", SetName: SetRequires, Element: value.NewString("b")},
	)

	_, err := Requires(doc, "b", "a")
	require.ErrorIs(t, err, ErrSchemaViolation)
}

func TestTogetherAndConflictsAreSymmetric(t *testing.T) {
	var ops = Together("a", "b")
	require.Len(t, ops, 2)
	require.Equal(t, crdt.AddToSet{ItemID: "a", SetName: SetTogether, Element: value.NewString("b")}, ops[0])
	require.Equal(t, crdt.AddToSet{ItemID: "b", SetName: SetTogether, Element: value.NewString("a")}, ops[1])

	var conflictOps = Conflicts("x", "y")
	require.Len(t, conflictOps, 2)
}

func TestSetStatusRejectsUnknown(t *testing.T) {
	_, err := SetStatus("a", Status("NOPE"))
	require.ErrorIs(t, err, ErrSchemaViolation)

	op, err2 := SetStatus("a", Completed)
	require.NoError(t, err2)
	require.Equal(t, crdt.SetField{ItemID: "a", Field: FieldStatus, Value: value.NewString(string(Completed))}, op)
}

func TestWouldCycleDirectSelfReference(t *testing.T) {
	var doc = docWith(NewGianttItem("a"))
	_, err := Requires(doc, "a", "a")
	require.Error(t, err)
}
