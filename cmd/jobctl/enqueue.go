package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"orchestrator/internal/http/handlers"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Create a queued job and print its record",
	Args:  cobra.NoArgs,
	RunE:  runEnqueue,
}

func init() {
	enqueueCmd.Flags().String("scope", "", "scope key the job runs against (required)")
	enqueueCmd.Flags().String("type", "", "job type (required)")
	enqueueCmd.Flags().String("payload", "{}", "JSON object passed to the handler")
	_ = enqueueCmd.MarkFlagRequired("scope")
	_ = enqueueCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(enqueueCmd)
}

func runEnqueue(cmd *cobra.Command, _ []string) error {
	scope, _ := cmd.Flags().GetString("scope")
	jobType, _ := cmd.Flags().GetString("type")
	payload, _ := cmd.Flags().GetString("payload")

	svc, logger, closeStore, err := openQueue(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	job, err := svc.Create(cmd.Context(), scope, jobType, json.RawMessage(payload))
	if err != nil {
		return err
	}
	logger.Info().Int64("job_id", job.ID).Str("job_type", job.Type).Msg("jobctl: job enqueued")
	return printJSON(cmd.OutOrStdout(), handlers.ToJobResponse(job))
}
