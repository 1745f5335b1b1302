// Command canondoc is a dev inspector for convergent document flows: it
// exercises the flow façade (init/open/write/push/pull/drip/doctor) from
// outside the library, the way a human would drive it from a shell.
package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

func main() {
	var parser = flags.NewParser(nil, flags.HelpFlag|flags.PassDoubleDash)

	addCmd(parser, "init", "Register a new flow", `
Registers a new flow UUID against a schema (taskgraph or inventory) in
the catalog. The on-disk log is created when the flow is first opened.
`, &cmdInit{})

	addCmd(parser, "push", "Append a local operation", `
Builds and appends one operation to a flow's log from flag-supplied
fields, stamping it as authored by this device.
`, &cmdPush{})

	addCmd(parser, "pull", "Print a flow's raw operation log", `
Prints every envelope currently recorded for a flow, one JSON object per
line, in canonical order. No canondoc command reads this output back.
`, &cmdPull{})

	addCmd(parser, "drip", "Print a flow's materialized projection", `
Materializes a flow and prints its schema-aware drip projection (task-graph
text lines, or inventory JSON).
`, &cmdDrip{})

	addCmd(parser, "doctor", "Validate a flow's materialized state", `
Runs the structural validator over a flow's materialized state and prints
any issues found, colorized by severity.
`, &cmdDoctor{})

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addCmd(to interface {
	AddCommand(string, string, string, interface{}) (*flags.Command, error)
}, a, b, c string, iface interface{}) *flags.Command {
	var cmd, err = to.AddCommand(a, b, c, iface)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to add command:", err)
		os.Exit(1)
	}
	return cmd
}
