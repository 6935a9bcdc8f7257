// Command cartography inspects per-epoch training dynamics files.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/cartography/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
