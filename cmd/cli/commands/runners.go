package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	runnersCmd.AddCommand(listRunnersCmd)
	runnersCmd.AddCommand(getRunnerCmd)
}

var runnersCmd = &cobra.Command{
	Use:   "runners",
	Short: "Inspect registered runners",
}

var listRunnersCmd = &cobra.Command{
	Use:   "list",
	Short: "List runners with derived activeness",
	RunE: func(_ *cobra.Command, _ []string) error {
		response, err := apiClient.AdminListRunners(context.Background())
		if err != nil {
			return fmt.Errorf("error fetching runners: %w", err)
		}
		return printJSON(response)
	},
}

var getRunnerCmd = &cobra.Command{
	Use:   "get <runner-id>",
	Short: "Get one runner and its recent jobs",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		response, err := apiClient.AdminGetRunner(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("error fetching runner: %w", err)
		}
		return printJSON(response)
	},
}
