// Package cli provides the command-line interface for beethoven.
package cli

import (
	"os"

	"github.com/raphaelgruber/beethoven-go/internal/client"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose   bool
	serverURL string

	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "beethoven",
	Short: "Submit and inspect lesson and sales-call recordings",
	Long: `Beethoven transcribes recorded lessons and sales calls and scores them
with a role-specific analysis prompt.

Submit audio, follow processing (pending → transcribing → analyzing → done),
read results, edit the analysis prompts and export results to a spreadsheet.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		apiClient = client.New(serverURL)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default $BEETHOVEN_SERVER_URL or http://localhost:8080)")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statsCmd)
}

// isInteractive reports whether stdout is a terminal, so the progress UI can run.
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
