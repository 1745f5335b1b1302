package main

import (
	"encoding/json"
	"fmt"

	"github.com/giantt-project/convergent/go/flow"
)

type cmdPull struct {
	BaseDir  string `long:"base-dir" default:"." description:"Directory holding the flow's catalog and log files"`
	DeviceID string `long:"device-id" required:"true" description:"This device's identity"`
	FlowID   string `long:"flow-id" required:"true" description:"UUID of the flow to read"`
}

func (c *cmdPull) Execute(args []string) error {
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

	envelopes, err := h.GetOperations()
	if err != nil {
		return err
	}
	for _, e := range envelopes {
		var line, err2 = json.Marshal(e)
		if err2 != nil {
			return err2
		}
		fmt.Println(string(line))
	}
	return nil
}
