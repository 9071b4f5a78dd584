package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "portal",
		Short: "Hospital patient portal",
	}
	rootCmd.PersistentFlags().StringSlice("config-path", nil, "Directories searched for config.yaml")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(renderBillCmd())
	rootCmd.AddCommand(watchEventsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
