package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	jobsCmd.AddCommand(listJobsCmd)
	jobsCmd.AddCommand(getJobCmd)
	jobsCmd.AddCommand(deleteJobCmd)

	listJobsCmd.Flags().IntP("limit", "l", 0, "Limit the number of jobs returned")
	listJobsCmd.Flags().String("status", "", "Filter jobs by status")
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage jobs",
}

var listJobsCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		status, _ := cmd.Flags().GetString("status")

		response, err := apiClient.AdminListJobs(context.Background(), status, limit)
		if err != nil {
			return fmt.Errorf("error fetching jobs: %w", err)
		}
		return printJSON(response)
	},
}

var getJobCmd = &cobra.Command{
	Use:   "get <job-id>",
	Short: "Get one job's status",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		response, err := apiClient.GetJob(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("error fetching job: %w", err)
		}
		return printJSON(response)
	},
}

var deleteJobCmd = &cobra.Command{
	Use:   "delete <job-id> [job-id...]",
	Short: "Delete jobs by id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		if len(args) == 1 {
			if err := apiClient.AdminDeleteJob(context.Background(), args[0]); err != nil {
				return fmt.Errorf("error deleting job: %w", err)
			}
			fmt.Println("deleted", args[0])
			return nil
		}

		response, err := apiClient.AdminBatchDeleteJobs(context.Background(), args)
		if err != nil {
			return fmt.Errorf("error deleting jobs: %w", err)
		}
		return printJSON(response)
	},
}
