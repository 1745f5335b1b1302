package value

import "sort"

// Horizon is a per-device high-water mark map: the highest LogicalClock
// the author had ingested at the moment it authored an envelope.
type Horizon map[DeviceId]LogicalClock

// Get returns h[d], defaulting to 0 for an unseen device.
func (h Horizon) Get(d DeviceId) LogicalClock {
	return h[d]
}

// Clone returns an independent copy.
func (h Horizon) Clone() Horizon {
	var cp = make(Horizon, len(h))
	for d, c := range h {
		cp[d] = c
	}
	return cp
}

// Merge returns the pointwise max of h and other, per spec.md §4.3.
func (h Horizon) Merge(other Horizon) Horizon {
	var out = h.Clone()
	for d, c := range other {
		if c > out[d] {
			out[d] = c
		}
	}
	return out
}

// Advance returns h ∪ {author: max(h[author], clock)}.
func (h Horizon) Advance(author DeviceId, clock LogicalClock) Horizon {
	var out = h.Clone()
	if clock > out[author] {
		out[author] = clock
	}
	return out
}

// ObservedByAuthorClock reports whether h.Get(author) >= clock, i.e.
// whether an envelope authored by `author` at `clock` was observed by
// whatever produced h.
func (h Horizon) ObservedByAuthorClock(author DeviceId, clock LogicalClock) bool {
	return h.Get(author) >= clock
}

// SortedDevices returns the devices present in h in canonical
// (lexicographic) order, for stable encoding/iteration.
func (h Horizon) SortedDevices() []DeviceId {
	var out = make([]DeviceId, 0, len(h))
	for d := range h {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Equal reports whether h and other have identical entries.
func (h Horizon) Equal(other Horizon) bool {
	if len(h) != len(other) {
		return false
	}
	for d, c := range h {
		if oc, ok := other[d]; !ok || oc != c {
			return false
		}
	}
	return true
}
