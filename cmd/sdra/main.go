package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/felixgeelhaar/sdra/internal/infrastructure/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		err = cli.MapError(err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var cliErr *cli.CLIError
		if errors.As(err, &cliErr) && cliErr.Hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", cliErr.Hint)
		}
		os.Exit(cli.ExitCode(err))
	}
}
