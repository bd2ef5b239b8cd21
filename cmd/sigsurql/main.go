package main

import (
	"os"

	"github.com/obviouslynotraffa/sigma-surrealql/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
