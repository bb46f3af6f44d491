package runner

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flatironinstitute/runpack/pkg/api/v1/client"
)

type echoHandler struct{}

func (echoHandler) JobType() string { return "echo" }

func (echoHandler) Execute(_ context.Context, params json.RawMessage, heartbeat HeartbeatFunc) (json.RawMessage, string, error) {
	heartbeat(1, 1, "echoing")
	return params, "done", nil
}

func newTestAgent(t *testing.T, handlers ...Handler) *Agent {
	t.Helper()
	apiClient, err := client.NewClient(client.DefaultOptions())
	require.NoError(t, err)

	agent, err := NewAgent(apiClient, "test-runner", handlers...)
	require.NoError(t, err)
	return agent
}

func TestNewAgentRequiresHandlers(t *testing.T) {
	apiClient, err := client.NewClient(client.DefaultOptions())
	require.NoError(t, err)

	_, err = NewAgent(apiClient, "test-runner")
	assert.Error(t, err)
}

func TestNewAgentRejectsDuplicateHandlers(t *testing.T) {
	apiClient, err := client.NewClient(client.DefaultOptions())
	require.NoError(t, err)

	_, err = NewAgent(apiClient, "test-runner", echoHandler{}, echoHandler{})
	assert.Error(t, err)
}

func TestNewAgentGeneratesName(t *testing.T) {
	apiClient, err := client.NewClient(client.DefaultOptions())
	require.NoError(t, err)

	agent, err := NewAgent(apiClient, "", echoHandler{})
	require.NoError(t, err)
	assert.NotEmpty(t, agent.name)
}

func TestCapabilities(t *testing.T) {
	agent := newTestAgent(t, echoHandler{})
	assert.Equal(t, []string{"echo"}, agent.Capabilities())
}

func TestPollIntervalBackoff(t *testing.T) {
	agent := newTestAgent(t, echoHandler{})
	assert.Equal(t, MinPollInterval, agent.pollInterval)

	// Idle polls back off up to the cap
	for i := 0; i < 100; i++ {
		agent.adjustPollInterval(false)
	}
	assert.Equal(t, MaxPollInterval, agent.pollInterval)

	// A successful execution resets the interval
	agent.adjustPollInterval(true)
	assert.Equal(t, MinPollInterval, agent.pollInterval)
}

func TestBackoffIsMonotonicWhileIdle(t *testing.T) {
	agent := newTestAgent(t, echoHandler{})

	previous := time.Duration(0)
	for i := 0; i < 20; i++ {
		agent.adjustPollInterval(false)
		assert.GreaterOrEqual(t, agent.pollInterval, previous)
		previous = agent.pollInterval
	}
}
