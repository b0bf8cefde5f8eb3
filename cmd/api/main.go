package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/fieldsales/core/cmd/api/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fieldsales",
		Short: "FieldSales API Server",
		Long:  `FieldSales tracks shops, visit notes and follow-up tasks for field sales reps, and serves the daily agenda built from them.`,
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
