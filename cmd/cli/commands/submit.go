package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flatironinstitute/runpack/pkg/types"
)

func init() {
	submitCmd.Flags().Bool("check", false, "Only check for an existing job, never create one")
}

var submitCmd = &cobra.Command{
	Use:   "submit <job-type> <input-params-json>",
	Short: "Submit a job, or resolve it to an existing one",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := json.RawMessage(args[1])
		if !json.Valid(params) {
			return fmt.Errorf("input params must be valid JSON")
		}
		req := types.SubmitJobRequest{JobType: args[0], InputParams: params}

		checkOnly, _ := cmd.Flags().GetBool("check")
		if checkOnly {
			response, err := apiClient.CheckJob(context.Background(), req)
			if err != nil {
				return fmt.Errorf("error checking job: %w", err)
			}
			return printJSON(response)
		}

		response, created, err := apiClient.SubmitJob(context.Background(), req)
		if err != nil {
			return fmt.Errorf("error submitting job: %w", err)
		}
		if created {
			fmt.Println("created new job")
		}
		return printJSON(response)
	},
}
