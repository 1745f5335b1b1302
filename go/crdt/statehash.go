package crdt

import (
	"bytes"
	"sort"
	"strconv"

	"github.com/minio/highwayhash"
)

// stateHashKey is a fixed, non-secret key: StateHash is a convergence
// fingerprint for peers to compare, not a MAC, so a shared well-known key
// is correct here (every peer must compute the same hash for the same
// state).
var stateHashKey = make([]byte, 32)

// StateHash is the canonical hash domain described in spec.md §9: items
// sorted by item_id, scalars sorted by field name, sets sorted by
// element canonical encoding. Two nodes converged on the same
// DocumentState (post future-compaction) produce identical hashes.
func StateHash(doc DocumentState) ([]byte, error) {
	var h, err = highwayhash.New(stateHashKey)
	if err != nil {
		return nil, err
	}

	var itemIDs = make([]string, 0, len(doc.Items))
	for id := range doc.Items {
		itemIDs = append(itemIDs, id)
	}
	sort.Strings(itemIDs)

	var buf bytes.Buffer
	for _, id := range itemIDs {
		var item = doc.Items[id]
		buf.Reset()
		buf.WriteString(id)
		buf.WriteByte('\x1f')
		buf.WriteString(item.ItemType)
		buf.WriteByte('\x1e')

		var fields = make([]string, 0, len(item.Scalars))
		for f := range item.Scalars {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			buf.WriteString(f)
			buf.WriteByte('=')
			buf.Write(item.Scalars[f].Value.CanonicalEncode())
			buf.WriteByte('\x1f')
		}
		buf.WriteByte('\x1e')

		var setNames = make([]string, 0, len(item.Sets))
		for s := range item.Sets {
			setNames = append(setNames, s)
		}
		sort.Strings(setNames)
		for _, s := range setNames {
			buf.WriteString(s)
			buf.WriteByte(':')
			for _, key := range item.SortedSetKeys(s) {
				buf.WriteString(key)
				buf.WriteByte(',')
			}
			buf.WriteByte('\x1f')
		}

		h.Write([]byte(strconv.Itoa(buf.Len())))
		h.Write(buf.Bytes())
	}
	return h.Sum(nil), nil
}
