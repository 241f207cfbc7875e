package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"orchestrator/internal/http/handlers"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a job record",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid job id %q", args[0])
	}

	svc, _, closeStore, err := openQueue(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	job, err := svc.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), handlers.ToJobResponse(job))
}
