// molfrag is the command line entry point for the fragmentation engine.
package main

import (
	"os"

	"github.com/turtacn/molfrag/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
