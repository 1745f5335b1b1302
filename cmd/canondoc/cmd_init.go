package main

import (
	"fmt"

	"github.com/giantt-project/convergent/go/flow"
)

type cmdInit struct {
	BaseDir  string `long:"base-dir" default:"." description:"Directory holding the flow's catalog and log files"`
	DeviceID string `long:"device-id" required:"true" description:"This device's identity for stamped envelopes"`
	FlowID   string `long:"flow-id" required:"true" description:"UUID of the flow to register"`
	Schema   string `long:"schema" choice:"taskgraph" choice:"inventory" required:"true" description:"Schema this flow is bound to"`
}

func (c *cmdInit) Execute(args []string) error {
	var schema = flow.SchemaTaskGraph
	if c.Schema == "inventory" {
		schema = flow.SchemaInventory
	}

	var r, err = flow.NewRegistry(c.BaseDir, deviceID(c.DeviceID), 64, nil)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.Init(c.FlowID, schema); err != nil {
		return err
	}
	fmt.Printf("initialized flow %s (%s)\n", c.FlowID, schema)
	return nil
}
