package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:   "wrapnzap",
		Short: "WrapNZap - wrap native payments and forward them",
		Long: `WrapNZap relay commands.

  wrapnzap serve      Start the HTTP relay
  wrapnzap version    Print build information`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newVersionCmd(),
	)

	return rootCmd.Execute()
}
