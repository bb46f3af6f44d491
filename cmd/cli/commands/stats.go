package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show job counts by status and runner activity",
	RunE: func(_ *cobra.Command, _ []string) error {
		response, err := apiClient.AdminStats(context.Background())
		if err != nil {
			return fmt.Errorf("error fetching stats: %w", err)
		}
		return printJSON(response)
	},
}
