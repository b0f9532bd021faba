// Command drolta compiles DEFINE/FIND logic queries to SQL and runs them
// against SQLite databases.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/drolta/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		// Commands report their own errors; only cobra's argument and flag
		// errors reach here unprinted.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	os.Exit(cli.GetExitCode(err))
}
