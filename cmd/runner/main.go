// Command runner starts a polling runner agent with the built-in echo
// handler. Real deployments supply their own handlers via pkg/runner.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/flatironinstitute/runpack/internal/logger"
	"github.com/flatironinstitute/runpack/pkg/api/v1/client"
	"github.com/flatironinstitute/runpack/pkg/api/v1/routes"
	"github.com/flatironinstitute/runpack/pkg/runner"
)

// echoHandler executes "echo" jobs by returning the input parameters.
type echoHandler struct{}

func (echoHandler) JobType() string { return "echo" }

func (echoHandler) Execute(_ context.Context, params json.RawMessage, heartbeat runner.HeartbeatFunc) (json.RawMessage, string, error) {
	heartbeat(0, 1, "echoing input")
	time.Sleep(time.Second)
	heartbeat(1, 1, "echoed input")
	return params, "echoed input", nil
}

var (
	serverAddress string
	apiKey        string
	runnerID      string
	runnerName    string
)

var rootCmd = &cobra.Command{
	Use:   "runpack-runner",
	Short: "Polling runner agent for the Runpack coordinator",
	RunE: func(_ *cobra.Command, _ []string) error {
		if apiKey == "" {
			apiKey = os.Getenv("RUNPACK_RUNNER_API_KEY")
		}
		if apiKey == "" {
			return fmt.Errorf("a runner API key is required (--api-key or RUNPACK_RUNNER_API_KEY)")
		}

		apiClient, err := client.NewClient(&client.Options{
			BaseURL:   serverAddress,
			AuthToken: apiKey,
			RunnerID:  runnerID,
		})
		if err != nil {
			return err
		}

		agent, err := runner.NewAgent(apiClient, runnerName, echoHandler{})
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			logger.Infof("Received signal %s, shutting down gracefully...", sig)
			cancel()
		}()

		return agent.Run(ctx)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&serverAddress, "server-address", "s", routes.DefaultBaseURL,
		"Address of the coordinator API")
	rootCmd.Flags().StringVarP(&apiKey, "api-key", "k", "", "Runner API key")
	rootCmd.Flags().StringVar(&runnerID, "runner-id", "", "Existing runner id to resume")
	rootCmd.Flags().StringVarP(&runnerName, "name", "n", "", "Runner name (generated when empty)")
}

func main() {
	_ = godotenv.Load()
	logger.InitializeAndConfigure()

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
