package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const healthPollInterval = 200 * time.Millisecond

func newHealthCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long: `Check that the gobang server answers its health endpoint.

With --wait the check is retried until the server is up or the duration
runs out, which is useful right after starting the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := waitHealthy(cmd.Context(), wait)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Keep retrying for up to this long")
	return cmd
}

// waitHealthy polls the health endpoint until it answers or wait elapses.
// A zero wait checks once.
func waitHealthy(ctx context.Context, wait time.Duration) (HealthResult, error) {
	deadline := time.Now().Add(wait)
	for {
		var result HealthResult
		err := client.Get(ctx, "/api/v1/health", &result)
		if err == nil {
			return result, nil
		}
		if !time.Now().Before(deadline) {
			return HealthResult{}, fmt.Errorf("server not healthy: %w", err)
		}

		select {
		case <-ctx.Done():
			return HealthResult{}, ctx.Err()
		case <-time.After(healthPollInterval):
		}
	}
}
