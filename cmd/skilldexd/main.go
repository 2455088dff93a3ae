package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/skilldex/internal/cli"
	"github.com/cloo-solutions/skilldex/internal/cli/admin"
)

var version = "dev"

func main() {
	admin.Version = version
	rootCmd := admin.RootCmd()

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if cli.CheckHelpJSON(rootCmd, os.Args[1:]) {
		return
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
