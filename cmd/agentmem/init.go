package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentmem/agentmem/internal/config"
)

var initMode string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter deployment config to --config",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteDefault(configPath, initMode); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s deployment config to %s\n", initMode, configPath)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initMode, "mode", "embedded", "deployment mode: embedded or server")
	rootCmd.AddCommand(initCmd)
}
