package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the conversion server is up",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend := newBackend()
		msg, err := backend.Health(cmd.Context())
		if err != nil {
			return fmt.Errorf("%s: %w", backend.Endpoint(), err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
