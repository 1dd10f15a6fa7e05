// Package main provides the entry point for the blamethrower CLI tool.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/blamethrower/cmd/blamethrower/commands"
	"github.com/Sumatoshi-tech/blamethrower/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	app := commands.NewApp()
	rootCmd := commands.NewRootCommand(app)
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()

	closeErr := app.Close(context.Background())
	if closeErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", closeErr)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
