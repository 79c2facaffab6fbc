package cli

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/beethoven-go/internal/client"
	"github.com/spf13/cobra"
)

var (
	listStatus   string
	listEmployee string
	listLimit    int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recordings",
	Long: `List recordings, newest first.

Examples:
  beethoven list
  beethoven list --status error
  beethoven list --employee t-7 --limit 20`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "filter by status")
	listCmd.Flags().StringVarP(&listEmployee, "employee", "e", "", "filter by employee ID")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "maximum number of recordings")
}

func runList(cmd *cobra.Command, args []string) error {
	recs, err := apiClient.ListRecordings(context.Background(), client.ListOptions{
		Status:     listStatus,
		EmployeeID: listEmployee,
		Limit:      listLimit,
	})
	if err != nil {
		return fmt.Errorf("list recordings: %w", err)
	}

	if len(recs) == 0 {
		fmt.Println("No recordings found")
		return nil
	}

	fmt.Printf("%-36s %-14s %-12s %-13s %-5s %s\n", "ID", "ROLE", "EMPLOYEE", "STATUS", "SCORE", "CREATED")
	fmt.Println("----------------------------------------------------------------------------------------------------")
	for _, r := range recs {
		score := "-"
		if r.Score != nil {
			score = fmt.Sprintf("%d", *r.Score)
		}
		fmt.Printf("%-36s %-14s %-12s %-13s %-5s %s\n",
			r.ID, r.EmployeeRole, r.EmployeeID, r.Status, score, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
