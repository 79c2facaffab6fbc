package cli

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/beethoven-go/internal/client"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server runtime statistics",
	Long: `Show pipeline run counts, per-stage timings and analysis token usage.
Counters are in-memory and reset when the server restarts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := apiClient.GetServerStats(context.Background())
		if err != nil {
			return fmt.Errorf("get server stats: %w", err)
		}
		printServerStats(stats)
		return nil
	},
}

// printServerStats displays server runtime statistics.
func printServerStats(stats *client.ServerStats) {
	fmt.Printf("Server Statistics (in-memory, since restart)\n")
	fmt.Printf("═══════════════════════════════════════════════\n")
	fmt.Printf("Uptime: %.1f seconds\n", stats.UptimeSeconds)

	r := stats.Runs
	fmt.Printf("\nRuns: %d started, %d done, %d failed, %d aborted, %d in flight\n",
		r.Started, r.Done, r.Failed, r.Aborted, r.InFlight)

	if stats.Normalize != nil {
		fmt.Printf("\nNormalize (ffmpeg):\n")
		printOpStats(stats.Normalize)
	}
	if stats.Transcribe != nil {
		fmt.Printf("\nTranscribe:\n")
		printOpStats(stats.Transcribe)
		printTokenStats(stats.Transcribe)
	}
	if stats.LLMGenerate != nil {
		fmt.Printf("\nAnalysis:\n")
		printOpStats(stats.LLMGenerate)
		printTokenStats(stats.LLMGenerate)
	}
	if stats.DBQuery != nil {
		fmt.Printf("\nDB Query:\n")
		printOpStats(stats.DBQuery)
	}
}

// printOpStats displays timing statistics for an operation.
func printOpStats(op *client.OperationStats) {
	fmt.Printf("  Calls: %d (%d failed), Total: %dms\n", op.Count, op.Failures, op.TotalTimeMs)
	fmt.Printf("  Time: avg %.1fms, min %dms, max %dms\n",
		op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
}

func printTokenStats(op *client.OperationStats) {
	if op.TotalInputTokens == nil || op.TotalOutputTokens == nil {
		return
	}
	fmt.Printf("  Tokens In:  %d total", *op.TotalInputTokens)
	if op.AvgInputTokens != nil {
		fmt.Printf(", avg %.0f", *op.AvgInputTokens)
	}
	fmt.Println()

	fmt.Printf("  Tokens Out: %d total", *op.TotalOutputTokens)
	if op.AvgOutputTokens != nil {
		fmt.Printf(", avg %.0f", *op.AvgOutputTokens)
	}
	fmt.Println()
}
