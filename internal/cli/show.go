package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/beethoven-go/internal/client"
	"github.com/spf13/cobra"
)

var showTranscript bool

var showCmd = &cobra.Command{
	Use:   "show <recording-id>",
	Short: "Show a recording with its analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showRecording(context.Background(), args[0])
	},
}

func init() {
	showCmd.Flags().BoolVarP(&showTranscript, "transcript", "t", false, "include the full transcript")
}

func showRecording(ctx context.Context, id string) error {
	rec, err := apiClient.GetRecording(ctx, id)
	if err != nil {
		if client.IsNotFound(err) {
			return fmt.Errorf("recording not found: %s", id)
		}
		return fmt.Errorf("get recording: %w", err)
	}
	printRecording(rec)
	return nil
}

func printRecording(rec *client.Recording) {
	fmt.Printf("Recording: %s\n", rec.ID)
	fmt.Printf("  Client: %s\n", rec.ClientID)
	fmt.Printf("  Employee: %s (%s)\n", rec.EmployeeID, rec.EmployeeRole)
	fmt.Printf("  Status: %s\n", rec.Status)
	if rec.AudioPath != nil {
		fmt.Printf("  Audio: %s\n", *rec.AudioPath)
	}
	fmt.Printf("  Created: %s\n", rec.CreatedAt.Format(time.RFC3339))
	if rec.UpdatedAt != nil {
		fmt.Printf("  Updated: %s\n", rec.UpdatedAt.Format(time.RFC3339))
	}
	if rec.Score != nil {
		fmt.Printf("  Score: %d/10\n", *rec.Score)
	}

	if rec.Analysis != nil {
		fmt.Printf("\nAnalysis:\n%s\n", *rec.Analysis)
	}
	if rec.Transcription != nil {
		if showTranscript {
			fmt.Printf("\nTranscript:\n%s\n", *rec.Transcription)
		} else {
			fmt.Printf("\nTranscript: %d characters (use --transcript to print)\n", len([]rune(*rec.Transcription)))
		}
	}
}
