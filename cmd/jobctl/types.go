package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"orchestrator/internal/infra"
	"orchestrator/internal/jobs"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the job types the worker can execute",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		registry, err := jobs.DefaultRegistry(infra.NopLogger())
		if err != nil {
			return err
		}
		for _, t := range registry.Types() {
			fmt.Fprintln(cmd.OutOrStdout(), t)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)
}
