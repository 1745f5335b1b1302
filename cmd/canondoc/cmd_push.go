package main

import (
	"fmt"

	"github.com/giantt-project/convergent/go/crdt"
	"github.com/giantt-project/convergent/go/flow"
	"github.com/giantt-project/convergent/go/value"
)

type cmdPush struct {
	BaseDir  string `long:"base-dir" default:"." description:"Directory holding the flow's catalog and log files"`
	DeviceID string `long:"device-id" required:"true" description:"This device's identity for stamped envelopes"`
	FlowID   string `long:"flow-id" required:"true" description:"UUID of the flow to mutate"`

	Kind  string `long:"kind" choice:"add_item" choice:"set_field" choice:"add_to_set" required:"true" description:"Operation kind"`
	Item  string `long:"item" required:"true" description:"Target item id"`
	Type  string `long:"type" description:"item_type, for add_item"`
	Field string `long:"field" description:"Field name, for set_field"`
	Set   string `long:"set" description:"Set name, for add_to_set"`
	Value string `long:"value" description:"Scalar string value, for set_field/add_to_set"`
}

func (c *cmdPush) Execute(args []string) error {
	var op crdt.Operation
	switch c.Kind {
	case "add_item":
		op = crdt.AddItem{ItemID: c.Item, ItemType: c.Type}
	case "set_field":
		op = crdt.SetField{ItemID: c.Item, Field: c.Field, Value: value.NewString(c.Value)}
	case "add_to_set":
		op = crdt.AddToSet{ItemID: c.Item, SetName: c.Set, Element: value.NewString(c.Value)}
	default:
		return fmt.Errorf("unrecognized op kind %q", c.Kind)
	}

	var r, err = flow.NewRegistry(c.BaseDir, deviceID(c.DeviceID), 64, nil)
	if err != nil {
		return err
	}
	defer r.Close()

	h, err := r.Open(c.FlowID)
	if err != nil {
		return err
	}
	defer h.Close()

	env, err := h.WriteLocal(op)
	if err != nil {
		return err
	}
	fmt.Printf("appended %s\n", env.OpId)
	return nil
}
