package taskgraph

import (
	"fmt"

	"github.com/giantt-project/convergent/go/crdt"
	"github.com/giantt-project/convergent/go/value"
)

// NewGianttItem builds the AddItem op for a fresh task-graph item.
func NewGianttItem(itemID string) crdt.Operation {
	return crdt.AddItem{ItemID: itemID, ItemType: ItemType}
}

// RemoveGianttItem builds the RemoveItem op for itemID.
func RemoveGianttItem(itemID string) crdt.Operation {
	return crdt.RemoveItem{ItemID: itemID}
}

func SetTitle(itemID, title string) crdt.Operation {
	return crdt.SetField{ItemID: itemID, Field: FieldTitle, Value: value.NewString(title)}
}

func SetStatus(itemID string, status Status) (crdt.Operation, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unrecognized status %q", ErrSchemaViolation, status)
	}
	return crdt.SetField{ItemID: itemID, Field: FieldStatus, Value: value.NewString(string(status))}, nil
}

func SetPriority(itemID string, priority Priority) (crdt.Operation, error) {
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unrecognized priority %q", ErrSchemaViolation, priority)
	}
	return crdt.SetField{ItemID: itemID, Field: FieldPriority, Value: value.NewString(string(priority))}, nil
}

func SetDuration(itemID, duration string) (crdt.Operation, error) {
	if err := ValidateDuration(duration); err != nil {
		return nil, err
	}
	return crdt.SetField{ItemID: itemID, Field: FieldDuration, Value: value.NewString(duration)}, nil
}

func SetUserComment(itemID, comment string) crdt.Operation {
	return crdt.SetField{ItemID: itemID, Field: FieldUserComment, Value: value.NewString(comment)}
}

func SetAutoComment(itemID, comment string) crdt.Operation {
	return crdt.SetField{ItemID: itemID, Field: FieldAutoComment, Value: value.NewString(comment)}
}

func AddTag(itemID, tag string) crdt.Operation {
	return crdt.AddToSet{ItemID: itemID, SetName: SetTags, Element: value.NewString(tag)}
}

func RemoveTag(itemID, tag string, observedAddIds []value.OpId) crdt.Operation {
	return crdt.RemoveFromSet{ItemID: itemID, SetName: SetTags, Element: value.NewString(tag), ObservedAddIds: observedAddIds}
}

func AddChart(itemID, chart string) crdt.Operation {
	return crdt.AddToSet{ItemID: itemID, SetName: SetCharts, Element: value.NewString(chart)}
}

func RemoveChart(itemID, chart string, observedAddIds []value.OpId) crdt.Operation {
	return crdt.RemoveFromSet{ItemID: itemID, SetName: SetCharts, Element: value.NewString(chart), ObservedAddIds: observedAddIds}
}

// Requires builds the bidirectional op pair for "a REQUIRES b" (and
// mirrors "b BLOCKS a"), per spec.md §4.6's bidirectional relation
// convention. It refuses (ErrSchemaViolation) if doc already shows b
// transitively requiring a, which would create a cycle; this check is
// advisory only, against the snapshot passed in.
func Requires(doc crdt.DocumentState, a, b string) ([]crdt.Operation, error) {
	if wouldCycle(doc, SetRequires, b, a) {
		return nil, fmt.Errorf("%w: REQUIRES(%s, %s) would introduce a cycle", ErrSchemaViolation, a, b)
	}
	return []crdt.Operation{
		crdt.AddToSet{ItemID: a, SetName: SetRequires, Element: value.NewString(b)},
		crdt.AddToSet{ItemID: b, SetName: SetBlocks, Element: value.NewString(a)},
	}, nil
}

// AnyOf builds the bidirectional op pair for "a ANYOF b" (mirrored as
// "b SUFFICIENT a"), with the same advisory cycle guard as Requires.
func AnyOf(doc crdt.DocumentState, a, b string) ([]crdt.Operation, error) {
	if wouldCycle(doc, SetAnyOf, b, a) {
		return nil, fmt.Errorf("%w: ANYOF(%s, %s) would introduce a cycle", ErrSchemaViolation, a, b)
	}
	return []crdt.Operation{
		crdt.AddToSet{ItemID: a, SetName: SetAnyOf, Element: value.NewString(b)},
		crdt.AddToSet{ItemID: b, SetName: SetSufficient, Element: value.NewString(a)},
	}, nil
}

// Supercharges builds the single directional op "a SUPERCHARGES b"; this
// relation has no defined mirror set (spec.md §4.6).
func Supercharges(a, b string) crdt.Operation {
	return crdt.AddToSet{ItemID: a, SetName: SetSupercharges, Element: value.NewString(b)}
}

// Indicates builds the single directional op "a INDICATES b"; no mirror.
func Indicates(a, b string) crdt.Operation {
	return crdt.AddToSet{ItemID: a, SetName: SetIndicates, Element: value.NewString(b)}
}

// Together builds the symmetric op pair for TOGETHER.
func Together(a, b string) []crdt.Operation {
	return []crdt.Operation{
		crdt.AddToSet{ItemID: a, SetName: SetTogether, Element: value.NewString(b)},
		crdt.AddToSet{ItemID: b, SetName: SetTogether, Element: value.NewString(a)},
	}
}

// Conflicts builds the symmetric op pair for CONFLICTS.
func Conflicts(a, b string) []crdt.Operation {
	return []crdt.Operation{
		crdt.AddToSet{ItemID: a, SetName: SetConflicts, Element: value.NewString(b)},
		crdt.AddToSet{ItemID: b, SetName: SetConflicts, Element: value.NewString(a)},
	}
}

// RemoveRequires mirrors the removal of a REQUIRES/BLOCKS pair; both
// sides' observed_add_ids are required so each RemoveFromSet correctly
// targets the add envelopes it is informed-removing.
func RemoveRequires(a, b string, aRequiresB, bBlocksA []value.OpId) []crdt.Operation {
	return []crdt.Operation{
		crdt.RemoveFromSet{ItemID: a, SetName: SetRequires, Element: value.NewString(b), ObservedAddIds: aRequiresB},
		crdt.RemoveFromSet{ItemID: b, SetName: SetBlocks, Element: value.NewString(a), ObservedAddIds: bBlocksA},
	}
}

// RemoveAnyOf mirrors the removal of an ANYOF/SUFFICIENT pair.
func RemoveAnyOf(a, b string, aAnyOfB, bSufficientA []value.OpId) []crdt.Operation {
	return []crdt.Operation{
		crdt.RemoveFromSet{ItemID: a, SetName: SetAnyOf, Element: value.NewString(b), ObservedAddIds: aAnyOfB},
		crdt.RemoveFromSet{ItemID: b, SetName: SetSufficient, Element: value.NewString(a), ObservedAddIds: bSufficientA},
	}
}

// RemoveTogether mirrors the removal of a symmetric TOGETHER pair.
func RemoveTogether(a, b string, aToB, bToA []value.OpId) []crdt.Operation {
	return []crdt.Operation{
		crdt.RemoveFromSet{ItemID: a, SetName: SetTogether, Element: value.NewString(b), ObservedAddIds: aToB},
		crdt.RemoveFromSet{ItemID: b, SetName: SetTogether, Element: value.NewString(a), ObservedAddIds: bToA},
	}
}

// RemoveConflicts mirrors the removal of a symmetric CONFLICTS pair.
func RemoveConflicts(a, b string, aToB, bToA []value.OpId) []crdt.Operation {
	return []crdt.Operation{
		crdt.RemoveFromSet{ItemID: a, SetName: SetConflicts, Element: value.NewString(b), ObservedAddIds: aToB},
		crdt.RemoveFromSet{ItemID: b, SetName: SetConflicts, Element: value.NewString(a), ObservedAddIds: bToA},
	}
}

// wouldCycle reports whether goal is reachable from start by following
// setName edges in doc (or start == goal) — i.e. whether adding the edge
// goal→start would close a cycle.
func wouldCycle(doc crdt.DocumentState, setName, start, goal string) bool {
	if start == goal {
		return true
	}
	var visited = map[string]bool{start: true}
	var stack = []string{start}
	for len(stack) > 0 {
		var cur = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == goal {
			return true
		}
		var item, ok = doc.Items[cur]
		if !ok {
			continue
		}
		for _, key := range item.SortedSetKeys(setName) {
			var elem = item.Sets[setName][key]
			if target, ok := elem.Element.AsString(); ok && !visited[target] {
				visited[target] = true
				stack = append(stack, target)
			}
		}
	}
	return false
}
