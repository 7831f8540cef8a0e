// Command facetview filters, sorts, groups and aggregates record
// collections from the command line.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/facetview/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		// Commands that already reported through the formatter return an
		// ExitError; anything else (flag parsing, arg counts) is printed here.
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
