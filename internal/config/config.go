// Package config provides environment-driven configuration for the coordinator.
package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variable names
const (
	// EnvSubmitAPIKey is the environment variable containing the client submit credential
	EnvSubmitAPIKey = "RUNPACK_SUBMIT_API_KEY"

	// EnvRunnerAPIKey is the environment variable containing the runner credential
	EnvRunnerAPIKey = "RUNPACK_RUNNER_API_KEY"

	// EnvAdminAPIKey is the environment variable containing the admin credential
	EnvAdminAPIKey = "RUNPACK_ADMIN_API_KEY"

	// EnvNotifyURL is the environment variable containing the outbound notify relay URL
	EnvNotifyURL = "RUNPACK_NOTIFY_URL"

	// EnvNotifyPublishKey is the environment variable containing the notify relay publish key
	EnvNotifyPublishKey = "RUNPACK_NOTIFY_PUBLISH_KEY"

	// EnvServerPort is the environment variable containing the HTTP listen port
	EnvServerPort = "RUNPACK_PORT"

	// EnvDBHost is the environment variable containing the database host
	EnvDBHost = "RUNPACK_DB_HOST"

	// EnvDBPort is the environment variable containing the database port
	EnvDBPort = "RUNPACK_DB_PORT"

	// EnvDBUser is the environment variable containing the database user
	EnvDBUser = "RUNPACK_DB_USER"

	// EnvDBPassword is the environment variable containing the database password
	EnvDBPassword = "RUNPACK_DB_PASSWORD"

	// EnvDBName is the environment variable containing the database name
	EnvDBName = "RUNPACK_DB_NAME"
)

// Default tunables. Sizes are in bytes, durations in their native unit.
const (
	// DefaultPort is the default HTTP listen port
	DefaultPort = "8080"

	// MaxInputParamsBytes caps the serialized input_params of a submission
	MaxInputParamsBytes = 100 * 1024

	// MaxOutputDataBytes caps the serialized output_data of a completion
	MaxOutputDataBytes = 500 * 1024

	// MaxConsoleOutputBytes caps console_output carried by heartbeats and terminals
	MaxConsoleOutputBytes = 1024 * 1024

	// MaxErrorMessageBytes caps the error_message of a failed job
	MaxErrorMessageBytes = 10 * 1024

	// HeartbeatTimeout is how long a claimed or in-progress job may go
	// without a heartbeat before the sweeper fails it
	HeartbeatTimeout = 90 * time.Second

	// SweepInterval is the cadence of the background stale sweeper
	SweepInterval = 30 * time.Second

	// RunnerActiveWindow is how recently a runner must have been seen
	// to be reported as active
	RunnerActiveWindow = 5 * time.Minute
)

// GetEnv retrieves the value of an environment variable with a fallback value if not set
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// GetEnvInt retrieves an integer environment variable with a fallback value
// if not set or not parseable
func GetEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
