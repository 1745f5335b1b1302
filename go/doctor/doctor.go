// Package doctor implements the schema-level post-materialization
// validator of spec.md §4.8: a pure function over a DocumentState that
// reports structural issues — dangling references, incomplete
// bidirectional relation pairs, orphaned items, chart/tag
// inconsistencies — without ever mutating the flow itself.
package doctor

import (
	"encoding/json"
	"fmt"
	"sort"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/giantt-project/convergent/go/crdt"
	"github.com/giantt-project/convergent/go/schema/inventory"
	"github.com/giantt-project/convergent/go/schema/taskgraph"
	"github.com/giantt-project/convergent/go/value"
)

// Kind is one of the five issue categories spec.md §4.8 names.
type Kind string

const (
	KindDanglingReference Kind = "dangling_reference"
	KindIncompleteChain   Kind = "incomplete_chain"
	KindOrphanedItem      Kind = "orphaned_item"
	KindChartInconsistency Kind = "chart_inconsistency"
	KindTagInconsistency  Kind = "tag_inconsistency"
)

// Issue is one finding reported by Run.
type Issue struct {
	Kind         Kind
	ItemID       string
	Message      string
	RelatedIDs   []string
	SuggestedFix []crdt.Operation
}

// mirrorPairs lists directional relation sets and the set on the target
// item that should mirror them, per spec.md §4.6.
var mirrorPairs = []struct {
	forward, mirror string
}{
	{taskgraph.SetRequires, taskgraph.SetBlocks},
	{taskgraph.SetAnyOf, taskgraph.SetSufficient},
}

var relationSetNames = []string{
	taskgraph.SetRequires, taskgraph.SetAnyOf, taskgraph.SetSupercharges,
	taskgraph.SetIndicates, taskgraph.SetTogether, taskgraph.SetConflicts,
	taskgraph.SetBlocks, taskgraph.SetSufficient,
}

// Run validates doc and returns every issue found, ordered deterministically
// by (kind, item_id) for stable output across repeated runs.
func Run(doc crdt.DocumentState) []Issue {
	var issues []Issue
	issues = append(issues, danglingReferences(doc)...)
	issues = append(issues, incompleteChains(doc)...)
	issues = append(issues, orphanedItems(doc)...)
	issues = append(issues, chartInconsistencies(doc)...)
	issues = append(issues, tagInconsistencies(doc)...)

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Kind != issues[j].Kind {
			return issues[i].Kind < issues[j].Kind
		}
		return issues[i].ItemID < issues[j].ItemID
	})
	return issues
}

func sortedItemIDs(doc crdt.DocumentState) []string {
	var ids = make([]string, 0, len(doc.Items))
	for id := range doc.Items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// danglingReferences reports any relation whose target item_id is not
// present in doc.Items. Container tags naming a missing item are not
// reported here; tagInconsistencies reports them.
func danglingReferences(doc crdt.DocumentState) []Issue {
	var out []Issue
	for _, id := range sortedItemIDs(doc) {
		var item = doc.Items[id]
		for _, setName := range relationSetNames {
			for _, key := range item.SortedSetKeys(setName) {
				var elem = item.Sets[setName][key]
				var target, ok = elem.Element.AsString()
				if !ok {
					continue
				}
				if _, exists := doc.Items[target]; !exists {
					out = append(out, Issue{
						Kind:       KindDanglingReference,
						ItemID:     id,
						Message:    fmt.Sprintf("%s references missing item %q in %s", id, target, setName),
						RelatedIDs: []string{target},
					})
				}
			}
		}
	}
	return out
}

// incompleteChains reports a directional relation present without its
// required mirror on the target item, and attaches the AddToSet op that
// would complete it.
func incompleteChains(doc crdt.DocumentState) []Issue {
	var out []Issue
	for _, id := range sortedItemIDs(doc) {
		var item = doc.Items[id]
		for _, pair := range mirrorPairs {
			for _, key := range item.SortedSetKeys(pair.forward) {
				var elem = item.Sets[pair.forward][key]
				var target, ok = elem.Element.AsString()
				if !ok {
					continue
				}
				var mirrorItem, exists = doc.Items[target]
				if !exists {
					continue // reported separately as a dangling_reference
				}
				if !hasSetMember(mirrorItem, pair.mirror, id) {
					out = append(out, Issue{
						Kind:       KindIncompleteChain,
						ItemID:     id,
						Message:    fmt.Sprintf("%s %s %s is missing its mirror %s on %s", id, pair.forward, target, pair.mirror, target),
						RelatedIDs: []string{target},
						SuggestedFix: []crdt.Operation{
							crdt.AddToSet{ItemID: target, SetName: pair.mirror, Element: value.NewString(id)},
						},
					})
				}
			}
		}
	}
	return out
}

func hasSetMember(item *crdt.Item, setName, target string) bool {
	for _, key := range item.SortedSetKeys(setName) {
		if s, ok := item.Sets[setName][key].Element.AsString(); ok && s == target {
			return true
		}
	}
	return false
}

// orphanedItems reports task-graph items with no relations, tags, or
// charts of any kind — never referenced and referencing nothing, a
// strong signal the item was created but never connected into the graph.
func orphanedItems(doc crdt.DocumentState) []Issue {
	var out []Issue
	var referenced = make(map[string]bool)
	for _, id := range sortedItemIDs(doc) {
		var item = doc.Items[id]
		if item.ItemType != taskgraph.ItemType {
			continue
		}
		for _, setName := range relationSetNames {
			for _, key := range item.SortedSetKeys(setName) {
				if target, ok := item.Sets[setName][key].Element.AsString(); ok {
					referenced[target] = true
				}
			}
		}
	}

	for _, id := range sortedItemIDs(doc) {
		var item = doc.Items[id]
		if item.ItemType != taskgraph.ItemType {
			continue
		}
		var hasOwnRelations = false
		for _, setName := range relationSetNames {
			if len(item.Sets[setName]) > 0 {
				hasOwnRelations = true
				break
			}
		}
		if !hasOwnRelations && !referenced[id] &&
			len(item.Sets[taskgraph.SetTags]) == 0 && len(item.Sets[taskgraph.SetCharts]) == 0 {
			out = append(out, Issue{
				Kind:    KindOrphanedItem,
				ItemID:  id,
				Message: fmt.Sprintf("%s has no relations, tags, or charts", id),
			})
		}
	}
	return out
}

// chartInconsistencies reports TOGETHER/CONFLICTS pairs whose two items
// share no common chart — the relation implies the items are meant to be
// scheduled/viewed on the same board, so a total absence of overlap is a
// likely data-entry mistake rather than an intentional cross-chart link.
func chartInconsistencies(doc crdt.DocumentState) []Issue {
	var out []Issue
	for _, id := range sortedItemIDs(doc) {
		var item = doc.Items[id]
		if item.ItemType != taskgraph.ItemType {
			continue
		}
		for _, setName := range []string{taskgraph.SetTogether, taskgraph.SetConflicts} {
			for _, key := range item.SortedSetKeys(setName) {
				var target, ok = item.Sets[setName][key].Element.AsString()
				if !ok {
					continue
				}
				var other, exists = doc.Items[target]
				if !exists {
					continue // reported separately as a dangling_reference
				}
				if !setsOverlap(item.Sets[taskgraph.SetCharts], other.Sets[taskgraph.SetCharts]) {
					out = append(out, Issue{
						Kind:       KindChartInconsistency,
						ItemID:     id,
						Message:    fmt.Sprintf("%s %s %s but the two items share no chart", id, setName, target),
						RelatedIDs: []string{target},
					})
				}
			}
		}
	}
	return out
}

func setsOverlap(a, b map[string]crdt.SetElement) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

// tagInconsistencies reports inventory items tagged as contained within
// an item that does not exist, and attaches the RemoveFromSet op that
// would clear the dangling tag.
func tagInconsistencies(doc crdt.DocumentState) []Issue {
	var out []Issue
	for _, id := range sortedItemIDs(doc) {
		var item = doc.Items[id]
		if item.ItemType != inventory.ItemType {
			continue
		}
		var inv, _ = inventory.Project(doc, id)
		var containerID, ok = inventory.ContainerID(inv.Tags)
		if !ok {
			continue
		}
		if _, exists := doc.Items[containerID]; exists {
			continue
		}
		var tagElement = value.NewString(inventory.ContainerTag(containerID))
		var observed = survivingAddIds(item, inventory.SetTags, tagElement)
		out = append(out, Issue{
			Kind:       KindTagInconsistency,
			ItemID:     id,
			Message:    fmt.Sprintf("%s is tagged as contained in missing item %q", id, containerID),
			RelatedIDs: []string{containerID},
			SuggestedFix: []crdt.Operation{
				crdt.RemoveFromSet{ItemID: id, SetName: inventory.SetTags, Element: tagElement, ObservedAddIds: observed},
			},
		})
	}
	return out
}

// setSnapshot is the minimal JSON projection SuggestedFixPatch diffs: the
// sorted, string-valued members of one set on one item.
type setSnapshot struct {
	Members []string `json:"members"`
}

// SuggestedFixPatch renders issue.SuggestedFix as an RFC 7386 JSON merge
// patch from the affected set's current members to its members after the
// fix is applied, so a caller (the `doctor` inspector command) can preview
// exactly what a fix would change before applying it. Grounded on the
// teacher's `jsonpatch.MergePatch` use in go/runtime/connector_store.go,
// run here in the complementary "compute the patch" direction via
// jsonpatch.CreateMergePatch. Returns nil, nil for issues with no fix.
func SuggestedFixPatch(doc crdt.DocumentState, issue Issue) ([]byte, error) {
	if len(issue.SuggestedFix) == 0 {
		return nil, nil
	}

	var itemID, setName string
	var element value.Value
	var adding bool
	switch op := issue.SuggestedFix[0].(type) {
	case crdt.AddToSet:
		itemID, setName, element, adding = op.ItemID, op.SetName, op.Element, true
	case crdt.RemoveFromSet:
		itemID, setName, element, adding = op.ItemID, op.SetName, op.Element, false
	default:
		return nil, fmt.Errorf("doctor: unsupported suggested-fix operation %T", op)
	}

	var before = setSnapshot{Members: currentSetMembers(doc, itemID, setName)}
	var after = setSnapshot{Members: applyFixMembership(before.Members, element, adding)}

	var beforeJSON, err = json.Marshal(before)
	if err != nil {
		return nil, fmt.Errorf("doctor: encoding fix preview: %w", err)
	}
	var afterJSON, err2 = json.Marshal(after)
	if err2 != nil {
		return nil, fmt.Errorf("doctor: encoding fix preview: %w", err2)
	}

	var patch, patchErr = jsonpatch.CreateMergePatch(beforeJSON, afterJSON)
	if patchErr != nil {
		return nil, fmt.Errorf("doctor: computing fix patch: %w", patchErr)
	}
	return patch, nil
}

func currentSetMembers(doc crdt.DocumentState, itemID, setName string) []string {
	var item, ok = doc.Items[itemID]
	if !ok {
		return nil
	}
	var out []string
	for _, key := range item.SortedSetKeys(setName) {
		if s, ok := item.Sets[setName][key].Element.AsString(); ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func applyFixMembership(members []string, element value.Value, adding bool) []string {
	var target, ok = element.AsString()
	if !ok {
		return members
	}
	var out []string
	var present = false
	for _, m := range members {
		if m == target {
			present = true
			if !adding {
				continue
			}
		}
		out = append(out, m)
	}
	if adding && !present {
		out = append(out, target)
	}
	sort.Strings(out)
	return out
}

func survivingAddIds(item *crdt.Item, setName string, element value.Value) []value.OpId {
	for _, key := range item.SortedSetKeys(setName) {
		var elem = item.Sets[setName][key]
		if elem.Element.Equal(element) {
			return elem.SurvivingAddIds
		}
	}
	return nil
}
