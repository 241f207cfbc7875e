package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"orchestrator/internal/adapter/repo"
	"orchestrator/internal/infra"
	"orchestrator/internal/notify"
	"orchestrator/internal/queue"
)

var rootCmd = &cobra.Command{
	Use:           "jobctl",
	Short:         "Operate the job orchestrator from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "jobctl:", err)
		os.Exit(1)
	}
}

// openQueue loads configuration and opens the configured store. Commands log
// to stderr so stdout stays machine readable.
func openQueue(ctx context.Context, cmd *cobra.Command) (*queue.Service, infra.Logger, func(), error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, infra.Logger{}, nil, err
	}
	logger := infra.NewLogger(cfg.AppEnv, "jobctl").Output(cmd.ErrOrStderr())
	store, closeStore, err := repo.Open(ctx, cfg, logger)
	if err != nil {
		return nil, infra.Logger{}, nil, err
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.RedisURL != "" {
		client, err := notify.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("jobctl: redis unavailable, workers will pick jobs up on their next poll")
		} else {
			notifier = notify.NewRedis(client, cfg.RedisChannel, logger)
			inner := closeStore
			closeStore = func() {
				_ = client.Close()
				inner()
			}
		}
	}
	return queue.NewService(store, notifier, logger), logger, closeStore, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
