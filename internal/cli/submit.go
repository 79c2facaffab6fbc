package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/raphaelgruber/beethoven-go/internal/client"
	"github.com/spf13/cobra"
)

var (
	submitClientID   string
	submitEmployeeID string
	submitRole       string
	submitRemote     bool
	submitWait       bool
)

var submitCmd = &cobra.Command{
	Use:   "submit <file>",
	Short: "Submit a recording for processing",
	Long: `Upload an audio file (any format ffmpeg reads) and start processing.

With --remote the argument is an object storage path instead of a local
file; the server downloads it.

Examples:
  beethoven submit lesson.mp3 --client c-42 --employee t-7 --role teacher
  beethoven submit call.m4a --client c-42 --employee s-3 --role sales_manager --wait
  beethoven submit calls/2025/05/01.ogg --remote --client c-42 --employee s-3 --role sales_manager`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submitClientID, "client", "", "client ID (required)")
	submitCmd.Flags().StringVar(&submitEmployeeID, "employee", "", "employee ID (required)")
	submitCmd.Flags().StringVar(&submitRole, "role", "", "employee role: teacher or sales_manager (required)")
	submitCmd.Flags().BoolVar(&submitRemote, "remote", false, "treat the argument as an object storage path")
	submitCmd.Flags().BoolVarP(&submitWait, "wait", "w", false, "wait until processing finishes")
	_ = submitCmd.MarkFlagRequired("client")
	_ = submitCmd.MarkFlagRequired("employee")
	_ = submitCmd.MarkFlagRequired("role")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	input := client.SubmitInput{
		ClientID:     submitClientID,
		EmployeeID:   submitEmployeeID,
		EmployeeRole: submitRole,
	}

	var (
		rec *client.Recording
		err error
	)
	if submitRemote {
		rec, err = apiClient.SubmitPath(ctx, args[0], input)
	} else {
		if _, statErr := os.Stat(args[0]); statErr != nil {
			return fmt.Errorf("audio file: %w", statErr)
		}
		rec, err = apiClient.SubmitFile(ctx, args[0], input)
	}
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	fmt.Printf("Submitted recording %s (status: %s)\n", rec.ID, rec.Status)
	if !submitWait {
		fmt.Printf("Use 'beethoven status %s --watch' to follow processing.\n", rec.ID)
		return nil
	}

	if err := waitForRecording(ctx, rec.ID); err != nil {
		return err
	}
	return showRecording(ctx, rec.ID)
}
