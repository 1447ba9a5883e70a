package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var updateActorID string

var updateCmd = &cobra.Command{
	Use:   "update <id> [content...]",
	Short: "Replace a memory's content, versioning the prior value into its history",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mem, err := assembly.Orchestrator.Update(cmd.Context(), args[0], strings.Join(args[1:], " "), updateActorID)
		if err != nil {
			return err
		}
		printResult(mem, func() {
			fmt.Printf("%s  version=%d  %s\n", mem.ID, mem.Version, mem.Content)
		})
		return nil
	},
}

func init() {
	updateCmd.Flags().StringVar(&updateActorID, "actor", "", "actor id recorded against the update's history entry")
	rootCmd.AddCommand(updateCmd)
}
