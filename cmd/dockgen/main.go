package main

import (
	"fmt"
	"os"

	"github.com/platinummonkey/dockgen/pkg/cli"
)

func main() {
	if err := cli.NewRootCommand(cli.DefaultDeps()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
