// Package types defines the request and response bodies shared by the API
// handlers and the API client.
package types

import (
	"encoding/json"

	"github.com/flatironinstitute/runpack/internal/db/models"
)

// ErrorResponse is the body of every 4xx/5xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is the body of the liveness endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// SubmitJobRequest creates or resolves a job by its canonical fingerprint.
type SubmitJobRequest struct {
	JobType     string          `json:"job_type"`
	InputParams json.RawMessage `json:"input_params"`
}

// JobResult carries the stored output of a completed job.
type JobResult struct {
	OutputData    json.RawMessage `json:"output_data,omitempty"`
	ConsoleOutput string          `json:"console_output,omitempty"`
}

// JobStatusInfo is the compact job view returned by submit, check, and status
// endpoints.
type JobStatusInfo struct {
	JobID           string           `json:"job_id"`
	JobHash         string           `json:"job_hash"`
	JobType         string           `json:"job_type"`
	Status          models.JobStatus `json:"status"`
	CreatedAt       int64            `json:"created_at"`
	UpdatedAt       int64            `json:"updated_at"`
	ProgressCurrent *int64           `json:"progress_current,omitempty"`
	ProgressTotal   *int64           `json:"progress_total,omitempty"`
	Result          *JobResult       `json:"result,omitempty"`
	ErrorMessage    string           `json:"error_message,omitempty"`
}

// CheckJobResponse is the read-only twin of the submit response.
type CheckJobResponse struct {
	Exists bool           `json:"exists"`
	Job    *JobStatusInfo `json:"job,omitempty"`
}

// RegisterRunnerRequest registers or re-registers a runner.
type RegisterRunnerRequest struct {
	RunnerID     string   `json:"runner_id,omitempty"`
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
}

// RegisterRunnerResponse returns the runner's identity.
type RegisterRunnerResponse struct {
	RunnerID string `json:"runner_id"`
	Name     string `json:"name"`
}

// VerifyRunnerResponse confirms a runner id is registered.
type VerifyRunnerResponse struct {
	RunnerID string `json:"runner_id"`
	Name     string `json:"name"`
}

// AvailableJob is one pending job a runner may try to claim.
type AvailableJob struct {
	JobID       string          `json:"job_id"`
	JobType     string          `json:"job_type"`
	InputParams json.RawMessage `json:"input_params,omitempty"`
	CreatedAt   int64           `json:"created_at"`
}

// AvailableJobsResponse lists pending jobs matching the runner's capabilities.
type AvailableJobsResponse struct {
	Jobs []AvailableJob `json:"jobs"`
}

// ClaimJobResponse returns the claimed job, input parameters included.
type ClaimJobResponse struct {
	JobID       string           `json:"job_id"`
	JobType     string           `json:"job_type"`
	InputParams json.RawMessage  `json:"input_params,omitempty"`
	Status      models.JobStatus `json:"status"`
	ClaimedAt   int64            `json:"claimed_at"`
}

// HeartbeatRequest carries runner progress and console output.
type HeartbeatRequest struct {
	ProgressCurrent *int64 `json:"progress_current,omitempty"`
	ProgressTotal   *int64 `json:"progress_total,omitempty"`
	ConsoleOutput   string `json:"console_output,omitempty"`
}

// CompleteJobRequest reports a successful terminal transition.
type CompleteJobRequest struct {
	OutputData    json.RawMessage `json:"output_data"`
	ConsoleOutput string          `json:"console_output,omitempty"`
}

// ErrorJobRequest reports a failed terminal transition.
type ErrorJobRequest struct {
	ErrorMessage  string `json:"error_message"`
	ConsoleOutput string `json:"console_output,omitempty"`
}

// OKResponse acknowledges a state-changing request with no other payload.
type OKResponse struct {
	Status string `json:"status"`
}

// RunnerStats summarizes runner registration and activity.
type RunnerStats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// StatsResponse is the admin monitoring summary.
type StatsResponse struct {
	Jobs    map[string]int64 `json:"jobs"`
	Runners RunnerStats      `json:"runners"`
}

// ListJobsResponse lists jobs for the admin surface.
type ListJobsResponse struct {
	Jobs []models.Job `json:"jobs"`
}

// BatchDeleteRequest deletes a batch of jobs by id.
type BatchDeleteRequest struct {
	JobIDs []string `json:"job_ids"`
}

// BatchDeleteResponse reports per-id deletion results.
type BatchDeleteResponse struct {
	Deleted []string `json:"deleted"`
	Failed  []string `json:"failed,omitempty"`
}

// RunnerInfo is the admin view of a runner with derived activeness.
type RunnerInfo struct {
	RunnerID     string   `json:"runner_id"`
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
	RegisteredAt int64    `json:"registered_at"`
	LastSeen     int64    `json:"last_seen"`
	Active       bool     `json:"active"`
}

// ListRunnersResponse lists runners for the admin surface.
type ListRunnersResponse struct {
	Runners []RunnerInfo `json:"runners"`
}

// RunnerDetailResponse is the admin view of one runner and its recent jobs.
type RunnerDetailResponse struct {
	Runner     RunnerInfo   `json:"runner"`
	RecentJobs []models.Job `json:"recent_jobs"`
}
