package crdt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/giantt-project/convergent/go/value"
)

// Envelope is an operation stamped with its author, logical clock,
// wall-clock timestamp, and causal horizon. It is immutable once emitted
// and is the unit of log, transport, and merge.
type Envelope struct {
	OpId      value.OpId
	Author    value.DeviceId
	Clock     value.LogicalClock
	Timestamp time.Time
	Horizon   value.Horizon
	Op        Operation
}

// AuthorLocal stamps a fresh envelope around op, minting a new OpId.
func AuthorLocal(op Operation, author value.DeviceId, clock value.LogicalClock, ts time.Time, horizon value.Horizon) Envelope {
	return Envelope{
		OpId:      value.NewOpId(),
		Author:    author,
		Clock:     clock,
		Timestamp: ts,
		Horizon:   horizon.Clone(),
		Op:        op,
	}
}

// envelopeWire is the stable on-the-wire field order from §6.
type envelopeWire struct {
	OpId      value.OpId                 `json:"op_id"`
	Author    value.DeviceId             `json:"author"`
	Clock     value.LogicalClock         `json:"clock"`
	Timestamp time.Time                  `json:"timestamp"`
	Horizon   map[value.DeviceId]value.LogicalClock `json:"horizon"`
	Op        opWire                     `json:"op"`
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	var w, err = marshalOperation(e.Op)
	if err != nil {
		return nil, fmt.Errorf("encoding envelope %s: %w", e.OpId, err)
	}
	return json.Marshal(envelopeWire{
		OpId:      e.OpId,
		Author:    e.Author,
		Clock:     e.Clock,
		Timestamp: e.Timestamp,
		Horizon:   map[value.DeviceId]value.LogicalClock(e.Horizon),
		Op:        w,
	})
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w envelopeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: decoding envelope: %v", value.ErrMalformedValue, err)
	}
	var op, err = unmarshalOperation(w.Op)
	if err != nil {
		return fmt.Errorf("decoding envelope %s: %w", w.OpId, err)
	}
	e.OpId = w.OpId
	e.Author = w.Author
	e.Clock = w.Clock
	e.Timestamp = w.Timestamp
	e.Horizon = value.Horizon(w.Horizon)
	if e.Horizon == nil {
		e.Horizon = value.Horizon{}
	}
	e.Op = op
	return nil
}
