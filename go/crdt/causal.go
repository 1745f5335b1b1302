package crdt

import "github.com/giantt-project/convergent/go/value"

// ObservedBy reports whether envelope e was observed by envelope f, i.e.
// f.Horizon[e.Author] >= e.Clock. The answer depends only on f's horizon:
// an envelope observes itself only if its horizon already covers its own
// clock, which a horizon taken from the log before it was appended does
// not.
func ObservedBy(e, f Envelope) bool {
	return f.Horizon.ObservedByAuthorClock(e.Author, e.Clock)
}

// MergeHorizons returns the pointwise max of h1 and h2.
func MergeHorizons(h1, h2 value.Horizon) value.Horizon {
	return h1.Merge(h2)
}

// AdvanceHorizon folds a single envelope into h.
func AdvanceHorizon(h value.Horizon, e Envelope) value.Horizon {
	return h.Advance(e.Author, e.Clock)
}

// CurrentHorizon folds Advance over every envelope in log, in whatever
// order it is given (the result does not depend on order).
func CurrentHorizon(log []Envelope) value.Horizon {
	var h = value.Horizon{}
	for _, e := range log {
		h = AdvanceHorizon(h, e)
	}
	return h
}

// envelopeDominatedByRemove reports whether e (an AddItem/SetField/
// AddToSet envelope on some item) is dominated by any RemoveItem in
// removes that observed it — used to exclude contributions of an item
// that is ultimately Removed, and to exclude scalar/set contributions
// whose originating existence was observed-removed (invariant 4).
func envelopeDominatedByRemove(e Envelope, removes []Envelope) bool {
	for _, rm := range removes {
		if ObservedBy(e, rm) {
			return true
		}
	}
	return false
}
