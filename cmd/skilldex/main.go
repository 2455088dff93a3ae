package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/skilldex/internal/cli"
	"github.com/cloo-solutions/skilldex/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := client.RootCmd(version)

	if cli.CheckHelpJSON(rootCmd, os.Args[1:]) {
		return
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
