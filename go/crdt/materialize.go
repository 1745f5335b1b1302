package crdt

import "github.com/giantt-project/convergent/go/value"

// Materialize reduces an envelope sequence to a DocumentState. The
// result is independent of the order envelopes are passed in (spec.md §8
// Convergence property); canonical replay order is only a log-store
// concern (§4.4), not a precondition here.
func Materialize(log []Envelope) DocumentState {
	var byItem = groupByItem(log)
	var doc = newDocumentState()

	for itemID, envs := range byItem {
		var adds, removes, sets, removeFromSets = partitionByKind(envs)
		if !anyContributionSurvives(envs, removes) {
			continue // every contribution (AddItem, SetField, AddToSet) was
			// observed by some RemoveItem: the item is Removed, or never
			// truly added.
		}

		var item = &Item{
			ItemType: pickItemType(adds),
			Scalars:  materializeScalars(envs, removes),
			Sets:     materializeSets(sets, removeFromSets, removes),
		}
		doc.Items[itemID] = item
	}
	return doc
}

// anyContributionSurvives reports whether at least one AddItem, SetField,
// or AddToSet envelope on this item is not dominated by any RemoveItem in
// removes. Per spec.md §3 invariant 4, a RemoveItem only defeats the
// contributions it causally observed; a concurrent contribution it never
// saw re-establishes the item as Live even if the original AddItem itself
// was observed and defeated.
func anyContributionSurvives(envs, removes []Envelope) bool {
	for _, e := range envs {
		switch e.Op.(type) {
		case AddItem, SetField, AddToSet:
			if !envelopeDominatedByRemove(e, removes) {
				return true
			}
		}
	}
	return false
}

func groupByItem(log []Envelope) map[string][]Envelope {
	var byItem = make(map[string][]Envelope)
	for _, e := range log {
		byItem[e.Op.ItemId()] = append(byItem[e.Op.ItemId()], e)
	}
	return byItem
}

func partitionByKind(envs []Envelope) (adds, removes, addToSets, removeFromSets []Envelope) {
	for _, e := range envs {
		switch e.Op.(type) {
		case AddItem:
			adds = append(adds, e)
		case RemoveItem:
			removes = append(removes, e)
		case AddToSet:
			addToSets = append(addToSets, e)
		case RemoveFromSet:
			removeFromSets = append(removeFromSets, e)
		}
	}
	return adds, removes, addToSets, removeFromSets
}

// pickItemType deterministically selects a single item_type among
// (possibly redundant) AddItem envelopes: the earliest in canonical
// order. This is independent of whether the item's existence was decided
// by the AddItem itself or by a later-surviving contribution (invariant
// 4) — the type an AddItem declares doesn't stop being meaningful just
// because that envelope lost the existence vote to a RemoveItem.
func pickItemType(adds []Envelope) string {
	if len(adds) == 0 {
		return ""
	}
	var best = adds[0]
	for _, e := range adds[1:] {
		if canonicalLess(e, best) {
			best = e
		}
	}
	if a, ok := best.Op.(AddItem); ok {
		return a.ItemType
	}
	return ""
}

// canonicalLess orders envelopes by (timestamp, author, clock), the
// canonical replay order of spec.md §3.
func canonicalLess(a, b Envelope) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	if a.Author != b.Author {
		return a.Author < b.Author
	}
	return a.Clock < b.Clock
}

func materializeScalars(envs []Envelope, removes []Envelope) map[string]ScalarValue {
	var byField = make(map[string][]Envelope)
	for _, e := range envs {
		if sf, ok := e.Op.(SetField); ok {
			if envelopeDominatedByRemove(e, removes) {
				continue
			}
			byField[sf.Field] = append(byField[sf.Field], e)
		}
	}

	var out = make(map[string]ScalarValue, len(byField))
	for field, candidates := range byField {
		var winner = candidates[0]
		for _, e := range candidates[1:] {
			if scalarWins(e, winner) {
				winner = e
			}
		}
		var sf = winner.Op.(SetField)
		out[field] = ScalarValue{
			Value: sf.Value,
			Meta: EnvelopeMeta{
				OpId:      winner.OpId,
				Author:    winner.Author,
				Clock:     winner.Clock,
				Timestamp: winner.Timestamp.UnixNano(),
			},
		}
	}
	return out
}

// scalarWins reports whether candidate beats current under the
// last-writer-wins rule of spec.md §3/§8: greatest timestamp, tie →
// greatest author, tie → greatest clock.
func scalarWins(candidate, current Envelope) bool {
	if !candidate.Timestamp.Equal(current.Timestamp) {
		return candidate.Timestamp.After(current.Timestamp)
	}
	if candidate.Author != current.Author {
		return candidate.Author > current.Author
	}
	return candidate.Clock > current.Clock
}

func materializeSets(addToSets, removeFromSets, removes []Envelope) map[string]map[string]SetElement {
	// Index RemoveFromSet envelopes by set_name -> observed add op_id.
	var removedAddIds = make(map[string]map[value.OpId]bool)
	for _, e := range removeFromSets {
		var r = e.Op.(RemoveFromSet)
		if removedAddIds[r.SetName] == nil {
			removedAddIds[r.SetName] = make(map[value.OpId]bool)
		}
		for _, id := range r.ObservedAddIds {
			removedAddIds[r.SetName][id] = true
		}
	}

	var out = make(map[string]map[string]SetElement)
	for _, e := range addToSets {
		var a = e.Op.(AddToSet)
		if envelopeDominatedByRemove(e, removes) {
			continue
		}
		if removedAddIds[a.SetName][e.OpId] {
			continue
		}
		if out[a.SetName] == nil {
			out[a.SetName] = make(map[string]SetElement)
		}
		var key = string(a.Element.CanonicalEncode())
		var elem = out[a.SetName][key]
		elem.Element = a.Element
		elem.SurvivingAddIds = append(elem.SurvivingAddIds, e.OpId)
		out[a.SetName][key] = elem
	}
	return out
}
