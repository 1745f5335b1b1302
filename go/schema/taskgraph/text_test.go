package taskgraph

import (
	"testing"

	"github.com/bradleyjkemp/cupaloy"
	"github.com/stretchr/testify/require"
)

// Scenario 5 of spec.md §8.
const scenario5 = `◑ complex_task!! 2w3d "Complex \"task\" with everything" {"Chart1","Chart2"} urgent,important >>> ⊢[dep1,dep2] ►[blocked1] ≫[enhanced1] @@@ window(5d:2d,severe) # User note ### Auto note`

func TestParseSerializeRoundTrip(t *testing.T) {
	var l, err = ParseLine(scenario5)
	require.NoError(t, err)

	require.Equal(t, "complex_task", l.ItemID)
	require.Equal(t, InProgress, l.Status)
	require.Equal(t, High, l.Priority)
	require.Equal(t, "2w3d", l.Duration)
	require.Equal(t, `Complex "task" with everything`, l.Title)
	require.Equal(t, []string{"Chart1", "Chart2"}, l.Charts)
	require.Equal(t, []string{"urgent", "important"}, l.Tags)
	require.Equal(t, []string{"dep1", "dep2"}, l.TargetsOf(SetRequires))
	require.Equal(t, []string{"blocked1"}, l.TargetsOf(SetBlocks))
	require.Equal(t, []string{"enhanced1"}, l.TargetsOf(SetSupercharges))
	require.Len(t, l.Constraints, 1)
	require.Equal(t, KindWindow, l.Constraints[0].Kind)
	require.Equal(t, "User note", l.UserComment)
	require.Equal(t, "Auto note", l.AutoComment)

	require.Equal(t, scenario5, l.Serialize())
}

func TestSerializeParseRoundTrip(t *testing.T) {
	var l = Line{
		ItemID:   "task1",
		Status:   NotStarted,
		Priority: Neutral,
		Duration: "1d",
		Title:    "Simple",
		Charts:   []string{"A"},
		Tags:     []string{"x"},
	}
	var serialized = l.Serialize()
	reparsed, err := ParseLine(serialized)
	require.NoError(t, err)
	require.Equal(t, l.ItemID, reparsed.ItemID)
	require.Equal(t, l.Status, reparsed.Status)
	require.Equal(t, l.Priority, reparsed.Priority)
	require.Equal(t, l.Title, reparsed.Title)
}

func TestParseSerializeGolden(t *testing.T) {
	var l, err = ParseLine(scenario5)
	require.NoError(t, err)
	cupaloy.SnapshotT(t, l)
}

func TestEveryConstraintStackFlag(t *testing.T) {
	var c, err = parseConstraint("every(1w:1d,warn,stack)")
	require.NoError(t, err)
	require.True(t, c.Stack)
	require.Equal(t, KindEvery, c.Kind)

	_, err = parseConstraint("window(1w:1d,warn,stack)")
	require.Error(t, err)
}

func TestValidateDuration(t *testing.T) {
	require.NoError(t, ValidateDuration("2w3d"))
	require.NoError(t, ValidateDuration("1.5h"))
	require.Error(t, ValidateDuration(""))
	require.Error(t, ValidateDuration("2x"))
	require.Error(t, ValidateDuration("2d garbage"))
}
