package taskgraph

import (
	"testing"
	"time"

	"github.com/giantt-project/convergent/go/crdt"
	"github.com/giantt-project/convergent/go/value"
	"github.com/stretchr/testify/require"
)

func TestValidateDurationTerms(t *testing.T) {
	require.NoError(t, ValidateDuration("1.5h"))
	require.NoError(t, ValidateDuration("1mo"))
	require.Error(t, ValidateDuration("1z"))
}

func TestStatusAndPriorityValid(t *testing.T) {
	require.True(t, Blocked.Valid())
	require.False(t, Status("WAT").Valid())
	require.True(t, Critical.Valid())
	require.False(t, Priority("WAT").Valid())
}

func TestProjectGianttItem(t *testing.T) {
	var env = func(op crdt.Operation) crdt.Envelope {
		return crdt.AuthorLocal(op, "D1", 1, time.Unix(0, 0), value.Horizon{})
	}
	var log = []crdt.Envelope{
		env(NewGianttItem("t1")),
		env(crdt.SetField{ItemID: "t1", Field: FieldTitle, Value: value.NewString("Task One")}),
		env(crdt.AddToSet{ItemID: "t1", SetName: SetTags, Element: value.NewString("urgent")}),
	}
	var doc = crdt.Materialize(log)
	item, ok := Project(doc, "t1")
	require.True(t, ok)
	require.Equal(t, "Task One", item.Title)
	require.Equal(t, []string{"urgent"}, item.Tags)

	_, ok2 := Project(doc, "missing")
	require.False(t, ok2)
}
