// Command jdbasic runs a .jdb source file, or starts the REPL when invoked
// with no arguments (prompting only when stdin is a terminal) (§6 Invocation).
package main

import (
	"os"

	"github.com/jdbasic/jdbasic/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
