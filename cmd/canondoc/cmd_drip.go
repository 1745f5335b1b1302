package main

import (
	"fmt"

	"github.com/giantt-project/convergent/go/flow"
)

type cmdDrip struct {
	BaseDir  string `long:"base-dir" default:"." description:"Directory holding the flow's catalog and log files"`
	DeviceID string `long:"device-id" required:"true" description:"This device's identity"`
	FlowID   string `long:"flow-id" required:"true" description:"UUID of the flow to project"`
}

func (c *cmdDrip) Execute(args []string) error {
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

	out, err := h.ReadDrip()
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}
