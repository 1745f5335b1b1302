package crdt

import (
	"sort"

	"github.com/giantt-project/convergent/go/value"
)

// DocumentState is the deterministic reduction of an envelope sequence.
// It holds only Live items; a Removed item has no entry, per spec.md §3
// invariant 4 and the "sequential remove" scenario in §8.
type DocumentState struct {
	Items map[string]*Item
}

// Item is the materialized view of a single Live item.
type Item struct {
	ItemType string
	// Scalars maps field name to its winning value and the envelope
	// metadata that won the last-writer-wins resolution.
	Scalars map[string]ScalarValue
	// Sets maps set name to the surviving elements of that set, keyed by
	// the element's canonical encoding (so identical elements from
	// concurrent adds fold together).
	Sets map[string]map[string]SetElement
}

// ScalarValue is a winning SetField resolution plus introspection
// metadata about the envelope that produced it.
type ScalarValue struct {
	Value value.Value
	Meta  EnvelopeMeta
}

// EnvelopeMeta is the subset of envelope identity useful for
// introspection after materialization.
type EnvelopeMeta struct {
	OpId      value.OpId
	Author    value.DeviceId
	Clock     value.LogicalClock
	Timestamp int64 // unix nanos, to avoid importing time into callers that only compare
}

// SetElement is one surviving element of a set-valued property, together
// with the op_ids of every AddToSet envelope that contributed it.
type SetElement struct {
	Element         value.Value
	SurvivingAddIds []value.OpId
}

func newDocumentState() DocumentState {
	return DocumentState{Items: make(map[string]*Item)}
}

// SortedSetKeys returns the keys (canonical element encodings) of setName
// on the item in sorted order, for callers that want deterministic
// iteration.
func (it *Item) SortedSetKeys(setName string) []string {
	var keys = make([]string, 0, len(it.Sets[setName]))
	for k := range it.Sets[setName] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
