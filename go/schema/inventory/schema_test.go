package inventory

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

func TestProjectInventoryItem(t *testing.T) {
	var doc = docWith(
		NewInventoryItem("i1"),
		SetName("i1", "Hammer"),
		SetCategory("i1", "Tools"),
		AddTag("i1", "heavy"),
	)
	item, ok := Project(doc, "i1")
	require.True(t, ok)
	require.Equal(t, "Hammer", item.Name)
	require.Equal(t, "Tools", item.Category)
	require.Equal(t, []string{"heavy"}, item.Tags)
}

func TestContainerTagRoundTrip(t *testing.T) {
	var tag = ContainerTag("box1")
	require.Equal(t, "container_box1", tag)

	id, ok := ContainerID([]string{"misc", tag})
	require.True(t, ok)
	require.Equal(t, "box1", id)

	_, ok2 := ContainerID([]string{"misc"})
	require.False(t, ok2)
}

func TestTagAsContainedInRefusesSelf(t *testing.T) {
	_, err := TagAsContainedIn("box1", "box1")
	require.ErrorIs(t, err, ErrSchemaViolation)

	op, err2 := TagAsContainedIn("item1", "box1")
	require.NoError(t, err2)
	require.Equal(t, crdt.AddToSet{ItemID: "item1", SetName: SetTags, Element: value.NewString("container_box1")}, op)
}

func TestDripProducesSortedJSON(t *testing.T) {
	var doc = docWith(
		NewInventoryItem("z1"),
		SetName("z1", "Zebra"),
		NewInventoryItem("a1"),
		SetName("a1", "Anvil"),
	)
	out, err := Drip(doc)
	require.NoError(t, err)
	require.Contains(t, string(out), `"item_id":"a1"`)
	require.Less(t,
		indexOf(string(out), "a1"),
		indexOf(string(out), "z1"),
	)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
