package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteActorID string

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Soft-delete a single memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := assembly.Orchestrator.Delete(cmd.Context(), args[0], deleteActorID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func init() {
	deleteCmd.Flags().StringVar(&deleteActorID, "actor", "", "actor id recorded against the deletion's history entry")
	rootCmd.AddCommand(deleteCmd)
}
