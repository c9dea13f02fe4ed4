package main

import (
	"fmt"
	"os"

	"github.com/dyike/StockAgent/internal/cli"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cli.Version = version
	rootCmd := cli.NewRootCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
