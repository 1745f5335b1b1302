// Package logstore implements the append-only, durable, per-flow
// envelope log described in spec.md §4.4: idempotent append, bulk
// ingest, canonical-order iteration, and byte-level snapshot export.
package logstore

import "errors"

// ErrIoFailure wraps a persistence failure; the log is left unchanged.
var ErrIoFailure = errors.New("log store io failure")
