package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentmem/agentmem/internal/types"
)

var (
	historyLimit  int
	historyOffset int
)

var historyCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show the event history recorded against a memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := assembly.Orchestrator.History(cmd.Context(), args[0], types.Page{Limit: historyLimit, Offset: historyOffset})
		if err != nil {
			return err
		}
		printResult(entries, func() {
			for _, e := range entries {
				fmt.Printf("%s  %-10s  actor=%s  %s\n", e.CreatedAt.Format("2006-01-02T15:04:05"), e.Event, e.ActorID, e.Reason)
			}
		})
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "maximum history entries to return")
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "page offset")
	rootCmd.AddCommand(historyCmd)
}
