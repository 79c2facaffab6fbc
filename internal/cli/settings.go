package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var settingsFile string

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage server settings such as the analysis prompts",
	Long: `Manage server settings. The analysis prompts live under the keys
prompt_teacher and prompt_sales; edits apply to the next processed recording.

Examples:
  beethoven settings list
  beethoven settings get prompt_teacher
  beethoven settings set prompt_sales --file prompts/sales.txt
  beethoven settings set prompt_teacher "Оцени урок по критериям..."`,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := apiClient.ListSettings(context.Background())
		if err != nil {
			return fmt.Errorf("list settings: %w", err)
		}
		if len(settings) == 0 {
			fmt.Println("No settings found")
			return nil
		}
		for _, s := range settings {
			fmt.Printf("%-20s %s\n", s.Key, preview(s.Value, 80))
		}
		return nil
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := apiClient.GetSetting(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("get setting: %w", err)
		}
		fmt.Println(s.Value)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Create or replace a setting",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := settingValue(args, settingsFile)
		if err != nil {
			return err
		}
		s, err := apiClient.SetSetting(context.Background(), args[0], value)
		if err != nil {
			return fmt.Errorf("set setting: %w", err)
		}
		fmt.Printf("Updated %s (%d characters)\n", s.Key, len([]rune(s.Value)))
		return nil
	},
}

func init() {
	settingsSetCmd.Flags().StringVarP(&settingsFile, "file", "f", "", "read the value from a file")
	settingsCmd.AddCommand(settingsListCmd, settingsGetCmd, settingsSetCmd)
}

// settingValue takes the value from the positional argument or from file,
// exactly one of which must be given.
func settingValue(args []string, file string) (string, error) {
	switch {
	case file != "" && len(args) == 2:
		return "", fmt.Errorf("give the value as an argument or with --file, not both")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read value file: %w", err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	case len(args) == 2:
		return args[1], nil
	default:
		return "", fmt.Errorf("missing value: give it as an argument or with --file")
	}
}

// preview flattens s to one line of at most n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
