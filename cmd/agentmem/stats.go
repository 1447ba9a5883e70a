package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report repository, vector index, and cache statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := assembly.Orchestrator.Stats(cmd.Context())
		if err != nil {
			return err
		}
		printResult(st, func() {
			fmt.Printf("memories:     %d\n", st.Repository.MemoryCount)
			fmt.Printf("history:      %d\n", st.Repository.HistoryCount)
			fmt.Printf("associations: %d\n", st.Repository.AssociationCount)
			fmt.Printf("vectors:      %d\n", st.Vector.VectorCount)
			fmt.Printf("cache hit rate: %.2f%%\n", st.Cache.HitRate()*100)
		})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
