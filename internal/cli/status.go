package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/beethoven-go/internal/client"
	"github.com/spf13/cobra"
)

var statusWatch bool

var statusCmd = &cobra.Command{
	Use:   "status <recording-id>",
	Short: "Show the processing status of a recording",
	Long: `Show the processing status of a recording.

With --watch, follow status changes until the recording is done or failed.

Examples:
  beethoven status 0b7c...
  beethoven status 0b7c... --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "follow status changes")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	id := args[0]

	if !statusWatch {
		view, err := apiClient.GetStatus(ctx, id)
		if err != nil {
			if client.IsNotFound(err) {
				return fmt.Errorf("recording not found: %s", id)
			}
			return fmt.Errorf("get status: %w", err)
		}
		fmt.Printf("%s  %s\n", view.ID, view.Status)
		return nil
	}

	if isInteractive() {
		return RunRecordingProgress(apiClient, id)
	}

	// The websocket feed pushes changes; fall back to polling if it drops.
	final, err := apiClient.Watch(ctx, id, func(v client.StatusView) error {
		fmt.Printf("%s  %-13s %s\n", time.Now().Format("15:04:05"), v.Status, stageLabel(v.Status))
		return nil
	})
	if err != nil {
		if client.IsNotFound(err) {
			return fmt.Errorf("recording not found: %s", id)
		}
		if verbose {
			fmt.Printf("watch interrupted (%v), polling instead\n", err)
		}
		final, err = waitPlain(ctx, apiClient, id)
		if err != nil {
			return err
		}
	}
	if final.Status == "error" {
		return fmt.Errorf("recording %s failed", id)
	}
	return nil
}
