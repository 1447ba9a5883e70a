package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentmem/agentmem/internal/orchestrator"
)

var (
	addUserID     string
	addAgentID    string
	addInfer      bool
	addImportance float64
)

var addCmd = &cobra.Command{
	Use:   "add [content...]",
	Short: "Add a memory, optionally running it through fact extraction",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content := strings.Join(args, " ")
		opts := orchestrator.AddOptions{
			UserID:  addUserID,
			AgentID: addAgentID,
			Infer:   addInfer,
		}
		if cmd.Flags().Changed("importance") {
			opts.Importance = &addImportance
		}
		res, err := assembly.Orchestrator.Add(cmd.Context(), content, opts)
		if err != nil {
			return err
		}

		printResult(res, func() {
			for _, o := range res.Outcomes {
				fmt.Printf("%-7s %s\n", o.Event, o.ID)
			}
			for _, w := range res.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}
		})
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addUserID, "user", "", "user id the memory belongs to (required)")
	addCmd.Flags().StringVar(&addAgentID, "agent", "", "agent id the memory belongs to")
	addCmd.Flags().BoolVar(&addInfer, "infer", false, "run content through fact extraction and decision-making instead of storing it verbatim")
	addCmd.Flags().Float64Var(&addImportance, "importance", 0.5, "importance in [0,1], defaults to 0.5 if omitted")
	addCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(addCmd)
}
