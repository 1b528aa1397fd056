// Command lmdbkv inspects and edits lmdbkv databases.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/lmdbkv/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			// usage errors; commands report their own failures
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(cli.ExitCommandError)
		}
		os.Exit(exitErr.Code)
	}
}
