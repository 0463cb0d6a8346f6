// Command r3 is the command-line front-end over the repository façade
// (spec.md 7), following the teacher's cmd/registry entrypoint pattern of
// a thin main() delegating straight into a cobra root command.
package main

import (
	"os"

	"github.com/robinruff/r3/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
