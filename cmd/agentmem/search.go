package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentmem/agentmem/internal/types"
)

var (
	searchUserID string
	searchLimit  int
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search memories with the hybrid dense+lexical pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		filter := types.MemoryFilter{UserID: searchUserID}
		page := types.Page{Limit: searchLimit}

		res, err := assembly.Orchestrator.Search(cmd.Context(), query, filter, page)
		if err != nil {
			return err
		}

		printResult(res, func() {
			for _, item := range res.Items {
				fmt.Printf("%.3f  %s  %s\n", item.FinalScore, item.Memory.ID, item.Memory.Content)
			}
			for _, w := range res.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}
		})
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchUserID, "user", "", "restrict search to this user id")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum number of results")
	rootCmd.AddCommand(searchCmd)
}
