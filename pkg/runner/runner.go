// Package runner implements a polling runner agent: it registers with the
// coordinator, polls for available jobs matching its handlers, claims one,
// executes it, and reports the outcome. Heartbeats are sent only when the
// handler calls the HeartbeatFunc it is given; the agent sends none on its own.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flatironinstitute/runpack/internal/jobhash"
	"github.com/flatironinstitute/runpack/internal/logger"
	"github.com/flatironinstitute/runpack/pkg/api/v1/client"
	"github.com/flatironinstitute/runpack/pkg/types"
)

// Polling cadence. The interval grows while the queue is empty and resets
// after a job is executed.
const (
	MinPollInterval       = 5 * time.Second
	MaxPollInterval       = 60 * time.Second
	PollIntervalIncrement = 5 * time.Second
)

// HeartbeatFunc reports execution progress back to the coordinator.
type HeartbeatFunc func(current, total int64, console string)

// Handler executes one job type.
type Handler interface {
	// JobType returns the capability this handler provides.
	JobType() string

	// Execute runs the job and returns its output data and final console
	// output.
	Execute(ctx context.Context, params json.RawMessage, heartbeat HeartbeatFunc) (json.RawMessage, string, error)
}

// Agent polls the coordinator and executes claimed jobs.
type Agent struct {
	client   *client.APIClient
	name     string
	handlers map[string]Handler

	pollInterval time.Duration
}

// NewAgent creates an agent using the given client and handlers. A name is
// generated when none is provided.
func NewAgent(apiClient *client.APIClient, name string, handlers ...Handler) (*Agent, error) {
	if len(handlers) == 0 {
		return nil, fmt.Errorf("at least one handler is required")
	}
	if name == "" {
		name = "runner-" + jobhash.NewID()[:8]
	}

	byType := make(map[string]Handler, len(handlers))
	for _, h := range handlers {
		if _, dup := byType[h.JobType()]; dup {
			return nil, fmt.Errorf("duplicate handler for job type %q", h.JobType())
		}
		byType[h.JobType()] = h
	}

	return &Agent{
		client:       apiClient,
		name:         name,
		handlers:     byType,
		pollInterval: MinPollInterval,
	}, nil
}

// Capabilities returns the job types this agent will accept.
func (a *Agent) Capabilities() []string {
	caps := make([]string, 0, len(a.handlers))
	for jobType := range a.handlers {
		caps = append(caps, jobType)
	}
	return caps
}

// RunnerID returns the agent's registered identity.
func (a *Agent) RunnerID() string {
	return a.client.RunnerID
}

// Register registers the agent, or verifies its existing registration when
// the client already carries a runner id.
func (a *Agent) Register(ctx context.Context) error {
	if a.client.RunnerID != "" {
		if _, err := a.client.VerifyRunner(ctx); err != nil {
			return fmt.Errorf("runner id %q is no longer registered, delete the saved id and restart: %w",
				a.client.RunnerID, err)
		}
		logger.Infof("Verified existing runner registration: %s", a.client.RunnerID)
		return nil
	}

	resp, err := a.client.RegisterRunner(ctx, types.RegisterRunnerRequest{
		Name:         a.name,
		Capabilities: a.Capabilities(),
	})
	if err != nil {
		return fmt.Errorf("failed to register runner: %w", err)
	}
	a.client.RunnerID = resp.RunnerID
	logger.InfoWithFields("Registered new runner", map[string]interface{}{
		"runner_id":    resp.RunnerID,
		"name":         a.name,
		"capabilities": a.Capabilities(),
	})
	return nil
}

// Run registers the agent and polls until the context is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.Register(ctx); err != nil {
		return err
	}

	logger.Infof("Runner entering polling loop (interval %s-%s)", MinPollInterval, MaxPollInterval)

	for {
		executed, err := a.pollAndExecute(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Errorf("Error during polling: %v", err)
		}

		a.adjustPollInterval(executed)

		select {
		case <-ctx.Done():
			logger.Info("Runner stopped")
			return nil
		case <-time.After(a.pollInterval):
		}
	}
}

// adjustPollInterval resets the interval after work was done and backs off
// while the queue is empty.
func (a *Agent) adjustPollInterval(executed bool) {
	if executed {
		a.pollInterval = MinPollInterval
		return
	}
	a.pollInterval += PollIntervalIncrement
	if a.pollInterval > MaxPollInterval {
		a.pollInterval = MaxPollInterval
	}
}

// pollAndExecute claims and executes at most one available job. It reports
// whether a job was executed.
func (a *Agent) pollAndExecute(ctx context.Context) (bool, error) {
	available, err := a.client.AvailableJobs(ctx, a.Capabilities())
	if err != nil {
		return false, err
	}
	if len(available.Jobs) == 0 {
		return false, nil
	}

	for _, job := range available.Jobs {
		claimed, err := a.client.ClaimJob(ctx, job.JobID)
		if err != nil {
			// Lost the claim race; try the next job
			logger.Debugf("Failed to claim job %s, trying next one: %v", job.JobID, err)
			continue
		}
		a.execute(ctx, claimed)
		return true, nil
	}
	return false, nil
}

// execute runs a claimed job and reports its terminal state.
func (a *Agent) execute(ctx context.Context, job *types.ClaimJobResponse) {
	logger.InfoWithFields("Executing job", map[string]interface{}{
		"job_id":   job.JobID,
		"job_type": job.JobType,
	})

	handler, ok := a.handlers[job.JobType]
	if !ok {
		a.reportError(ctx, job.JobID, fmt.Sprintf("no handler for job type %q", job.JobType), "")
		return
	}

	heartbeat := func(current, total int64, console string) {
		err := a.client.SendHeartbeat(ctx, job.JobID, types.HeartbeatRequest{
			ProgressCurrent: &current,
			ProgressTotal:   &total,
			ConsoleOutput:   console,
		})
		if err != nil {
			logger.Errorf("Failed to send heartbeat for job %s: %v", job.JobID, err)
		}
	}

	output, console, err := handler.Execute(ctx, job.InputParams, heartbeat)
	if err != nil {
		logger.Errorf("Job %s failed: %v", job.JobID, err)
		a.reportError(ctx, job.JobID, err.Error(), console)
		return
	}

	err = a.client.CompleteJob(ctx, job.JobID, types.CompleteJobRequest{
		OutputData:    output,
		ConsoleOutput: console,
	})
	if err != nil {
		logger.Errorf("Failed to report completion of job %s: %v", job.JobID, err)
		return
	}
	logger.Infof("Successfully completed job %s", job.JobID)
}

func (a *Agent) reportError(ctx context.Context, jobID, message, console string) {
	if err := a.client.ErrorJob(ctx, jobID, types.ErrorJobRequest{
		ErrorMessage:  message,
		ConsoleOutput: console,
	}); err != nil {
		logger.Errorf("Failed to report error for job %s: %v", jobID, err)
	}
}
