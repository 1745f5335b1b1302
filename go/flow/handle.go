package flow

import (
	"fmt"
	"sort"
	"time"

	"github.com/giantt-project/convergent/go/crdt"
	"github.com/giantt-project/convergent/go/schema/inventory"
	"github.com/giantt-project/convergent/go/schema/taskgraph"
)

// Handle is a caller's lease on an open flow. It must be Closed when no
// longer needed; subsequent façade calls on a Closed Handle return
// ErrFlowClosed.
type Handle struct {
	shared *sharedFlow
	closed bool
}

// WriteLocal stamps op as an envelope authored by the registry's
// device, appends it to the flow's log, and returns the envelope that
// was recorded.
func (h *Handle) WriteLocal(op crdt.Operation) (crdt.Envelope, error) {
	if h.closed {
		return crdt.Envelope{}, ErrFlowClosed
	}
	h.shared.mu.Lock()
	defer h.shared.mu.Unlock()

	h.shared.localClock++
	var horizon = crdt.CurrentHorizon(h.shared.log.Iter())
	var env = crdt.AuthorLocal(op, h.shared.registry.deviceID, h.shared.localClock, time.Now(), horizon)

	if _, err := h.shared.log.Append(env); err != nil {
		return crdt.Envelope{}, err
	}
	if _, err := h.shared.registry.cat.bumpVersion(h.shared.flowID); err != nil {
		return crdt.Envelope{}, err
	}
	return env, nil
}

// GetOperations returns every envelope recorded for this flow, in
// canonical order, for transport to a peer device.
func (h *Handle) GetOperations() ([]crdt.Envelope, error) {
	if h.closed {
		return nil, ErrFlowClosed
	}
	return h.shared.log.Iter(), nil
}

// ApplyRemote idempotently ingests envelopes received from a peer,
// returning the count actually newly added.
func (h *Handle) ApplyRemote(envelopes []crdt.Envelope) (int, error) {
	if h.closed {
		return 0, ErrFlowClosed
	}
	h.shared.mu.Lock()
	defer h.shared.mu.Unlock()

	var added, err = h.shared.log.IngestMany(envelopes)
	if err != nil {
		return added, err
	}
	if added > 0 {
		if _, err := h.shared.registry.cat.bumpVersion(h.shared.flowID); err != nil {
			return added, err
		}
	}
	return added, nil
}

// ReadMaterialized returns the deterministic reduction of this flow's
// log, served from the registry's LRU cache when the catalog's version
// counter shows no mutation has occurred since the cached entry was
// produced.
func (h *Handle) ReadMaterialized() (crdt.DocumentState, error) {
	if h.closed {
		return crdt.DocumentState{}, ErrFlowClosed
	}

	var row, ok, err = h.shared.registry.cat.lookup(h.shared.flowID)
	if err != nil {
		return crdt.DocumentState{}, err
	}
	if !ok {
		return crdt.DocumentState{}, fmt.Errorf("%w: %s", ErrUnknownFlow, h.shared.flowID)
	}

	if cached, hit := h.shared.registry.cache.Get(h.shared.flowID); hit && cached.version == row.Version {
		return cached.doc, nil
	}

	var doc = crdt.Materialize(h.shared.log.Iter())
	h.shared.registry.cache.Add(h.shared.flowID, cachedDoc{doc: doc, version: row.Version})
	return doc, nil
}

// ReadDrip renders the materialized document in the wire format of its
// bound schema: the task-graph text serialization (one line per
// GianttItem) for SchemaTaskGraph, or structured JSON for
// SchemaInventory.
func (h *Handle) ReadDrip() ([]byte, error) {
	if h.closed {
		return nil, ErrFlowClosed
	}
	var doc, err = h.ReadMaterialized()
	if err != nil {
		return nil, err
	}

	switch h.shared.schema {
	case SchemaTaskGraph:
		return dripTaskGraph(doc)
	case SchemaInventory:
		return inventory.Drip(doc)
	default:
		return nil, fmt.Errorf("%w: unrecognized schema %q for flow %s", ErrIoFailure, h.shared.schema, h.shared.flowID)
	}
}

func dripTaskGraph(doc crdt.DocumentState) ([]byte, error) {
	var ids = make([]string, 0, len(doc.Items))
	for id, item := range doc.Items {
		if item.ItemType == taskgraph.ItemType {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var b []byte
	for _, id := range ids {
		var item, ok = taskgraph.Project(doc, id)
		if !ok {
			continue
		}
		var line = taskgraph.Line{
			ItemID:      item.ItemID,
			Status:      item.Status,
			Priority:    item.Priority,
			Duration:    item.Duration,
			Title:       item.Title,
			Charts:      item.Charts,
			Tags:        item.Tags,
			UserComment: item.UserComment,
			AutoComment: item.AutoComment,
			Relations:   relationGroups(item.Relations),
		}
		b = append(b, []byte(line.Serialize())...)
		b = append(b, '\n')
	}
	return b, nil
}

// relationGroupOrder is the order relation groups are emitted in when
// rendering a fresh (not round-tripped) drip line; any order is
// semantically equivalent, but a fixed order keeps successive drips of
// an unchanged document byte-identical.
var relationGroupOrder = []string{
	taskgraph.SetRequires, taskgraph.SetBlocks,
	taskgraph.SetAnyOf, taskgraph.SetSufficient,
	taskgraph.SetSupercharges, taskgraph.SetIndicates,
	taskgraph.SetTogether, taskgraph.SetConflicts,
}

func relationGroups(relations map[string][]string) []taskgraph.RelationGroup {
	var out []taskgraph.RelationGroup
	for _, setName := range relationGroupOrder {
		if targets := relations[setName]; len(targets) > 0 {
			out = append(out, taskgraph.RelationGroup{SetName: setName, Targets: targets})
		}
	}
	return out
}

// Close releases this Handle's lease on the shared flow state. Once
// every Handle to a flow has been Closed, its log file handle is
// released too.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return h.shared.registry.release(h.shared)
}
