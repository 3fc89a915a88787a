package main

import (
	"os"

	"github.com/SIXwishlist/pulp/cmd"
)

func main() {
	rootCmd := cmd.NewRootCommand()

	queryCmd := cmd.NewQueryCommand()
	rootCmd.AddCommand(queryCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
