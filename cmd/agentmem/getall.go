package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentmem/agentmem/internal/types"
)

var (
	getAllUserID  string
	getAllAgentID string
	getAllLimit   int
	getAllOffset  int
)

var getAllCmd = &cobra.Command{
	Use:   "get-all",
	Short: "List memories matching a scope, without a query",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := types.MemoryFilter{UserID: getAllUserID, AgentID: getAllAgentID}
		page := types.Page{Limit: getAllLimit, Offset: getAllOffset}
		memories, err := assembly.Orchestrator.GetAll(cmd.Context(), filter, page)
		if err != nil {
			return err
		}
		printResult(memories, func() {
			for _, mem := range memories {
				fmt.Printf("%s  %-12s  %s\n", mem.ID, mem.MemoryType, mem.Content)
			}
		})
		return nil
	},
}

func init() {
	getAllCmd.Flags().StringVar(&getAllUserID, "user", "", "user id to scope the listing to")
	getAllCmd.Flags().StringVar(&getAllAgentID, "agent", "", "agent id to scope the listing to")
	getAllCmd.Flags().IntVar(&getAllLimit, "limit", 50, "maximum memories to return")
	getAllCmd.Flags().IntVar(&getAllOffset, "offset", 0, "page offset")
	rootCmd.AddCommand(getAllCmd)
}
