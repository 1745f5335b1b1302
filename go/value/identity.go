package value

import (
	"fmt"

	"github.com/google/uuid"
)

// OpId is the globally-unique identity of a single operation, used for
// dedupe and for RemoveFromSet.observed_add_ids back-references.
type OpId string

// NewOpId mints a fresh, overwhelmingly-likely-unique OpId.
func NewOpId() OpId {
	return OpId(uuid.New().String())
}

func (id OpId) String() string { return string(id) }

// DeviceId is an opaque, stable identifier for a node/device. It is the
// tie-breaker of last-writer-wins resolution.
type DeviceId string

func (d DeviceId) String() string { return string(d) }

// LogicalClock is a per-device, monotonically non-decreasing sequence
// number.
type LogicalClock uint64

// ParseOpId validates that s looks like a well-formed OpId (a UUID),
// returning ErrMalformedValue otherwise.
func ParseOpId(s string) (OpId, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("%w: op_id %q: %v", ErrMalformedValue, s, err)
	}
	return OpId(s), nil
}
