package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/giantt-project/convergent/go/doctor"
	"github.com/giantt-project/convergent/go/flow"
)

var (
	fixableLabel = color.New(color.FgYellow).SprintFunc()
	reportLabel  = color.New(color.FgRed).SprintFunc()
	okLabel      = color.New(color.FgGreen).SprintFunc()
)

type cmdDoctor struct {
	BaseDir   string `long:"base-dir" default:"." description:"Directory holding the flow's catalog and log files"`
	DeviceID  string `long:"device-id" required:"true" description:"This device's identity"`
	FlowID    string `long:"flow-id" required:"true" description:"UUID of the flow to validate"`
	ShowPatch bool   `long:"show-patch" description:"Print each fixable issue's suggested fix as a JSON merge patch"`
}

func (c *cmdDoctor) Execute(args []string) error {
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

	doc, err := h.ReadMaterialized()
	if err != nil {
		return err
	}

	var issues = doctor.Run(doc)
	if len(issues) == 0 {
		fmt.Println(okLabel("no issues found"))
		return nil
	}

	for _, issue := range issues {
		var label = reportLabel(string(issue.Kind))
		if len(issue.SuggestedFix) > 0 {
			label = fixableLabel(string(issue.Kind))
		}
		fmt.Printf("[%s] %s: %s\n", label, issue.ItemID, issue.Message)

		if c.ShowPatch && len(issue.SuggestedFix) > 0 {
			var patch, patchErr = doctor.SuggestedFixPatch(doc, issue)
			if patchErr != nil {
				return patchErr
			}
			fmt.Printf("    patch: %s\n", patch)
		}
	}
	return nil
}
