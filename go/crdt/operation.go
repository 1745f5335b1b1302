// Package crdt implements the five-operation primitive set, the causal
// horizon, and deterministic materialization of an envelope sequence into
// a schema-neutral DocumentState.
package crdt

import (
	"fmt"

	"github.com/giantt-project/convergent/go/value"
)

// Operation is the sum type of the five primitives. Every Operation
// produced by this package is one of the five struct types below.
type Operation interface {
	isOperation()
	// ItemId returns the item the operation targets.
	ItemId() string
}

type AddItem struct {
	ItemID   string
	ItemType string
}

type RemoveItem struct {
	ItemID string
}

type SetField struct {
	ItemID string
	Field  string
	Value  value.Value
}

type AddToSet struct {
	ItemID  string
	SetName string
	Element value.Value
}

type RemoveFromSet struct {
	ItemID          string
	SetName         string
	Element         value.Value
	ObservedAddIds  []value.OpId
}

func (AddItem) isOperation()       {}
func (RemoveItem) isOperation()    {}
func (SetField) isOperation()      {}
func (AddToSet) isOperation()      {}
func (RemoveFromSet) isOperation() {}

func (o AddItem) ItemId() string       { return o.ItemID }
func (o RemoveItem) ItemId() string    { return o.ItemID }
func (o SetField) ItemId() string      { return o.ItemID }
func (o AddToSet) ItemId() string      { return o.ItemID }
func (o RemoveFromSet) ItemId() string { return o.ItemID }

// ErrUnknownOpKind is returned when an envelope's op variant tag is not
// recognized, by Envelope.UnmarshalJSON or when encoding an envelope.
// The log store's replay and snapshot decoding skip and count such lines;
// the flow façade's ApplyRemote receives already-decoded envelopes and
// does no skipping of its own. Encoding one in write_local fails.
var ErrUnknownOpKind = fmt.Errorf("unknown op kind")

// wire mirrors the JSON shape of §6: {"<Variant>": {...fields...}}.
type opWire struct {
	AddItem       *addItemWire       `json:"AddItem,omitempty"`
	RemoveItem    *removeItemWire    `json:"RemoveItem,omitempty"`
	SetField      *setFieldWire      `json:"SetField,omitempty"`
	AddToSet      *addToSetWire      `json:"AddToSet,omitempty"`
	RemoveFromSet *removeFromSetWire `json:"RemoveFromSet,omitempty"`
}

type addItemWire struct {
	ItemId   string `json:"item_id"`
	ItemType string `json:"item_type"`
}

type removeItemWire struct {
	ItemId string `json:"item_id"`
}

type setFieldWire struct {
	ItemId string      `json:"item_id"`
	Field  string      `json:"field"`
	Value  value.Value `json:"value"`
}

type addToSetWire struct {
	ItemId  string      `json:"item_id"`
	SetName string      `json:"set_name"`
	Element value.Value `json:"element"`
}

type removeFromSetWire struct {
	ItemId         string        `json:"item_id"`
	SetName        string        `json:"set_name"`
	Element        value.Value   `json:"element"`
	ObservedAddIds []value.OpId  `json:"observed_add_ids"`
}

func marshalOperation(op Operation) (opWire, error) {
	switch o := op.(type) {
	case AddItem:
		return opWire{AddItem: &addItemWire{ItemId: o.ItemID, ItemType: o.ItemType}}, nil
	case RemoveItem:
		return opWire{RemoveItem: &removeItemWire{ItemId: o.ItemID}}, nil
	case SetField:
		return opWire{SetField: &setFieldWire{ItemId: o.ItemID, Field: o.Field, Value: o.Value}}, nil
	case AddToSet:
		return opWire{AddToSet: &addToSetWire{ItemId: o.ItemID, SetName: o.SetName, Element: o.Element}}, nil
	case RemoveFromSet:
		return opWire{RemoveFromSet: &removeFromSetWire{
			ItemId:         o.ItemID,
			SetName:        o.SetName,
			Element:        o.Element,
			ObservedAddIds: o.ObservedAddIds,
		}}, nil
	default:
		return opWire{}, fmt.Errorf("%w: %T", ErrUnknownOpKind, op)
	}
}

func unmarshalOperation(w opWire) (Operation, error) {
	var set int
	var op Operation
	if w.AddItem != nil {
		set++
		op = AddItem{ItemID: w.AddItem.ItemId, ItemType: w.AddItem.ItemType}
	}
	if w.RemoveItem != nil {
		set++
		op = RemoveItem{ItemID: w.RemoveItem.ItemId}
	}
	if w.SetField != nil {
		set++
		op = SetField{ItemID: w.SetField.ItemId, Field: w.SetField.Field, Value: w.SetField.Value}
	}
	if w.AddToSet != nil {
		set++
		op = AddToSet{ItemID: w.AddToSet.ItemId, SetName: w.AddToSet.SetName, Element: w.AddToSet.Element}
	}
	if w.RemoveFromSet != nil {
		set++
		op = RemoveFromSet{
			ItemID:         w.RemoveFromSet.ItemId,
			SetName:        w.RemoveFromSet.SetName,
			Element:        w.RemoveFromSet.Element,
			ObservedAddIds: w.RemoveFromSet.ObservedAddIds,
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: expected exactly one variant, found %d", ErrUnknownOpKind, set)
	}
	return op, nil
}
