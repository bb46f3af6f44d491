// Package commands implements the runpack CLI.
package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flatironinstitute/runpack/pkg/api/v1/client"
	"github.com/flatironinstitute/runpack/pkg/api/v1/routes"
)

// flag names
const (
	flagServerAddress = "server-address"
	flagAuthToken     = "token"
)

// environment variable names
const (
	envServerAddress = "RUNPACK_SERVER_ADDRESS"
	envAuthToken     = "RUNPACK_CLI_TOKEN"
)

var (
	// apiClient is the shared API client instance
	apiClient *client.APIClient
	// serverAddress holds the target API server address. Flag parsing sets this.
	serverAddress string
	// authToken is the bearer credential used by the CLI
	authToken string
)

// initClient initializes the API client
func initClient() error {
	opts := client.DefaultOptions()
	opts.BaseURL = serverAddress
	opts.AuthToken = authToken

	var err error
	apiClient, err = client.NewClient(opts)
	return err
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&serverAddress, flagServerAddress, "s", routes.DefaultBaseURL,
		"Address of the coordinator API (env: RUNPACK_SERVER_ADDRESS)")
	RootCmd.PersistentFlags().StringVarP(&authToken, flagAuthToken, "t", "",
		"Bearer credential for the API (env: RUNPACK_CLI_TOKEN)")

	RootCmd.AddCommand(jobsCmd)
	RootCmd.AddCommand(runnersCmd)
	RootCmd.AddCommand(statsCmd)
	RootCmd.AddCommand(submitCmd)
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "runpack",
	Short: "Runpack CLI - A command line interface for the Runpack coordinator",
	Long: `Runpack CLI is a command line tool for submitting and administering
computation jobs through the Runpack coordinator API.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if !cmd.Flags().Changed(flagServerAddress) {
			if envAddr := os.Getenv(envServerAddress); envAddr != "" {
				serverAddress = envAddr
			}
		}
		if !cmd.Flags().Changed(flagAuthToken) {
			if envToken := os.Getenv(envAuthToken); envToken != "" {
				authToken = envToken
			}
		}

		if serverAddress == "" {
			return fmt.Errorf("server address cannot be empty")
		}
		return initClient()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}

// printJSON pretty-prints a response value.
func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error formatting output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
