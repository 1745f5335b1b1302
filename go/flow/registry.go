// Package flow implements the flow registry and façade of spec.md §7:
// init/open/write_local/get_operations/apply_remote/read_materialized/
// read_drip/close/cleanup, backed by a per-flow append-only NDJSON log
// (go/logstore) and a sqlite catalog of known flows.
package flow

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/giantt-project/convergent/go/crdt"
	"github.com/giantt-project/convergent/go/logstore"
	"github.com/giantt-project/convergent/go/ops"
	"github.com/giantt-project/convergent/go/value"
	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"
)

// Schema names recognized by ReadDrip's dispatch.
const (
	SchemaTaskGraph = "taskgraph"
	SchemaInventory = "inventory"
)

type cachedDoc struct {
	doc     crdt.DocumentState
	version int64
}

// Registry owns the catalog of known flows and the shared, reference-
// counted state (open log, local clock) backing every open Handle.
type Registry struct {
	baseDir  string
	deviceID value.DeviceId
	logger   ops.Logger

	cat *catalog

	mu    sync.Mutex
	flows map[string]*sharedFlow

	cache *lru.Cache[string, cachedDoc]
}

// sharedFlow is the reference-counted state backing every Handle open
// against a given flow UUID; concurrent Handles to the same flow share
// one underlying Log and clock rather than racing separate file handles.
type sharedFlow struct {
	registry *Registry
	flowID   string
	schema   string

	mu         sync.Mutex
	log        *logstore.Log
	localClock value.LogicalClock
	references int
}

// NewRegistry opens (or creates) the catalog database at
// <baseDir>/catalog.db and prepares an in-memory cache of materialized
// documents bounded to cacheSize entries.
func NewRegistry(baseDir string, deviceID value.DeviceId, cacheSize int, logger ops.Logger) (*Registry, error) {
	if logger == nil {
		logger = ops.Noop
	}
	var cat, err = openCatalog(filepath.Join(baseDir, "catalog.db"))
	if err != nil {
		return nil, err
	}
	var cache, cacheErr = lru.New[string, cachedDoc](cacheSize)
	if cacheErr != nil {
		return nil, fmt.Errorf("%w: constructing materialization cache: %v", ErrIoFailure, cacheErr)
	}
	return &Registry{
		baseDir:  baseDir,
		deviceID: deviceID,
		logger:   logger,
		cat:      cat,
		flows:    make(map[string]*sharedFlow),
		cache:    cache,
	}, nil
}

func (r *Registry) logPath(flowID string) string {
	return filepath.Join(r.baseDir, flowID+".ndjson")
}

// Init declares flowID's schema (one of SchemaTaskGraph,
// SchemaInventory), creating its catalog row if Open hasn't already
// auto-created it, or updating the schema of a flow Open already
// vivified without one. It does not create the log file; the first Open
// does. It is idempotent.
func (r *Registry) Init(flowID, schemaName string) error {
	if err := r.cat.register(flowID, r.logPath(flowID), schemaName); err != nil {
		return err
	}
	if err := r.cat.setSchema(flowID, schemaName); err != nil {
		return err
	}
	r.mu.Lock()
	if shared, exists := r.flows[flowID]; exists {
		shared.schema = schemaName
	}
	r.mu.Unlock()
	r.logger.Log(log.InfoLevel, log.Fields{"flow_id": flowID, "schema": schemaName}, "flow initialized")
	return nil
}

// Open returns a Handle for flowID, per spec.md §4.7 returning "a handle
// to an existing or newly created flow": a flowID never seen before is
// silently registered (with an unset schema) and given an empty log,
// rather than requiring a prior Init call — the common case of receiving
// apply_remote traffic for a flow before its schema is locally known.
// Init may be called before or after the first Open to bind (or rebind)
// the flow's schema, which only gates read_drip's dispatch.
func (r *Registry) Open(flowID string) (*Handle, error) {
	var row, ok, err = r.cat.lookup(flowID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := r.cat.register(flowID, r.logPath(flowID), ""); err != nil {
			return nil, err
		}
		row, ok, err = r.cat.lookup(flowID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrIoFailure, flowID)
		}
	}

	r.mu.Lock()
	var shared, exists = r.flows[flowID]
	if exists {
		shared.references++
		r.mu.Unlock()
		return &Handle{shared: shared}, nil
	}
	r.mu.Unlock()

	var log, openErr = logstore.Open(row.LogPath, r.logger)
	if openErr != nil {
		return nil, openErr
	}

	shared = &sharedFlow{
		registry:   r,
		flowID:     flowID,
		schema:     row.Schema,
		log:        log,
		localClock: currentMaxClock(log, r.deviceID),
		references: 1,
	}

	r.mu.Lock()
	r.flows[flowID] = shared
	r.mu.Unlock()

	return &Handle{shared: shared}, nil
}

// currentMaxClock scans the log for the highest clock value this device
// has already issued, so a reopened flow resumes its logical clock
// instead of restarting at zero and risking op_id/clock collisions.
func currentMaxClock(l *logstore.Log, deviceID value.DeviceId) value.LogicalClock {
	var max value.LogicalClock
	for _, e := range l.Iter() {
		if e.Author == deviceID && e.Clock > max {
			max = e.Clock
		}
	}
	return max
}

// Cleanup permanently removes a flow: its catalog row and on-disk log.
// It refuses, with an error wrapping ErrIoFailure, if the flow currently
// has open Handles, since deleting out from under a live reader would
// corrupt its view.
func (r *Registry) Cleanup(flowID string) error {
	r.mu.Lock()
	var shared, open = r.flows[flowID]
	r.mu.Unlock()
	if open && shared.references > 0 {
		return fmt.Errorf("%w: flow %s has open handles", ErrIoFailure, flowID)
	}

	var row, ok, err = r.cat.lookup(flowID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFlow, flowID)
	}

	if err := removeFile(row.LogPath); err != nil {
		return err
	}
	if err := r.cat.forget(flowID); err != nil {
		return err
	}
	r.cache.Remove(flowID)
	return nil
}

// List returns every flow UUID known to the registry's catalog.
func (r *Registry) List() ([]string, error) {
	return r.cat.list()
}

// Close releases the registry's catalog handle. Still-open Handles keep
// their flow's log file open until they are themselves Closed, but every
// call that reaches the catalog (WriteLocal, ApplyRemote when it adds
// envelopes, ReadMaterialized, ReadDrip) returns an error afterwards;
// WriteLocal and ApplyRemote report it after appending to the log.
func (r *Registry) Close() error {
	return r.cat.close()
}

func (r *Registry) release(shared *sharedFlow) error {
	r.mu.Lock()
	shared.references--
	var last = shared.references == 0
	if last {
		delete(r.flows, shared.flowID)
	}
	r.mu.Unlock()

	if last {
		return shared.log.Close()
	}
	return nil
}
