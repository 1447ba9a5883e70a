package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetParentID string

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every memory under a scope, returning the count removed",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := assembly.Orchestrator.Reset(cmd.Context(), resetParentID)
		if err != nil {
			return err
		}
		printResult(n, func() {
			fmt.Printf("reset %d memories\n", n)
		})
		return nil
	},
}

func init() {
	resetCmd.Flags().StringVar(&resetParentID, "parent", "", "parent scope id to reset (user or agent id)")
	rootCmd.AddCommand(resetCmd)
}
