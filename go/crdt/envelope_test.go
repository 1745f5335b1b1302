package crdt

import (
	"testing"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/giantt-project/convergent/go/value"
	"github.com/nsf/jsondiff"
	"github.com/stretchr/testify/require"
)

// requireJSONEqual asserts a and b are semantically equal JSON documents,
// printing a readable structural diff (teacher pattern:
// go/testing/driver.go's jsondiff.Compare) rather than a raw byte dump when
// they differ. Semantic rather than byte equality matters here because the
// envelope wire format's Horizon field is a Go map, whose key order is not
// guaranteed stable across repeated marshals.
func requireJSONEqual(t *testing.T, want, got []byte) {
	t.Helper()
	if jsonpatch.Equal(want, got) {
		return
	}
	var opts = jsondiff.DefaultConsoleOptions()
	var _, diff = jsondiff.Compare(want, got, &opts)
	t.Fatalf("envelope JSON round-trip mismatch:\n%s", diff)
}

// envelopeRoundTrips marshals e, unmarshals the result into a fresh
// Envelope, and asserts the re-marshaled bytes are semantically identical
// to the original — the wire contract §6 relies on for transport.
func envelopeRoundTrips(t *testing.T, e Envelope) {
	t.Helper()
	var encoded, err = e.MarshalJSON()
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, decoded.UnmarshalJSON(encoded))

	var reencoded, reerr = decoded.MarshalJSON()
	require.NoError(t, reerr)
	requireJSONEqual(t, encoded, reencoded)
}

func TestEnvelopeRoundTripsAllOperationKinds(t *testing.T) {
	var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var horizon = value.Horizon{"D1": 3, "D2": 1}

	envelopeRoundTrips(t, env(AddItem{ItemID: "x", ItemType: "GianttItem"}, "D1", 1, t0, horizon))
	envelopeRoundTrips(t, env(RemoveItem{ItemID: "x"}, "D1", 2, t0, horizon))
	envelopeRoundTrips(t, env(SetField{ItemID: "x", Field: "title", Value: value.NewString("Hello")}, "D1", 3, t0, horizon))
	envelopeRoundTrips(t, env(AddToSet{ItemID: "x", SetName: "tags", Element: value.NewString("urgent")}, "D1", 4, t0, horizon))
	envelopeRoundTrips(t, env(RemoveFromSet{
		ItemID: "x", SetName: "tags", Element: value.NewString("urgent"),
		ObservedAddIds: []value.OpId{value.NewOpId(), value.NewOpId()},
	}, "D1", 5, t0, horizon))
}

// TestEnvelopeRoundTripDetectsRealDrift guards the comparison
// requireJSONEqual relies on: jsonpatch.Equal must NOT report two
// envelopes differing in a field value as equal.
func TestEnvelopeRoundTripDetectsRealDrift(t *testing.T) {
	var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var a = env(SetField{ItemID: "x", Field: "title", Value: value.NewString("Hello")}, "D1", 1, t0, value.Horizon{})
	var b = env(SetField{ItemID: "x", Field: "title", Value: value.NewString("Goodbye")}, "D1", 1, t0, value.Horizon{})

	var encodedA, err = a.MarshalJSON()
	require.NoError(t, err)
	var encodedB, err2 = b.MarshalJSON()
	require.NoError(t, err2)

	require.False(t, jsonpatch.Equal(encodedA, encodedB))
}
