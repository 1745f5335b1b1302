package flow

import "fmt"

// ErrFlowClosed is returned by any façade operation invoked on a Handle
// after Close, per spec.md §7.
var ErrFlowClosed = fmt.Errorf("flow is closed")

// ErrIoFailure wraps an underlying storage error (log append, catalog
// write, fsync) surfaced to the caller without exposing the concrete
// database/sql or os error type.
var ErrIoFailure = fmt.Errorf("flow i/o failure")

// ErrUnknownFlow is returned by Cleanup, and by ReadMaterialized/ReadDrip
// if a flow's catalog row vanishes out from under an open Handle (e.g. a
// concurrent Cleanup). Open itself never returns it: per spec.md §4.7 it
// creates a catalog row for any flow UUID it hasn't seen before.
var ErrUnknownFlow = fmt.Errorf("unknown flow")
