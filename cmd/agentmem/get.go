package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch a single memory by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mem, err := assembly.Orchestrator.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printResult(mem, func() {
			fmt.Printf("%s\n", mem.ID)
			fmt.Printf("  user:       %s\n", mem.UserID)
			fmt.Printf("  type:       %s\n", mem.MemoryType)
			fmt.Printf("  importance: %.2f\n", mem.Importance)
			fmt.Printf("  version:    %d\n", mem.Version)
			fmt.Printf("  content:    %s\n", mem.Content)
		})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
