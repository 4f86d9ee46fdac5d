package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/pairbook/core/cmd/api/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pairbook",
		Short: "Pairbook API Server",
		Long:  `Pairbook is a shared scrapbook for two people: a daily task ledger with carry-over and tear-off archival, a calendar, and a memory wall.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
