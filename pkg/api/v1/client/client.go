// Package client provides the API client for interacting with the coordinator
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/flatironinstitute/runpack/pkg/api/v1/routes"
	"github.com/flatironinstitute/runpack/pkg/types"
)

// DefaultTimeout is the default timeout for API requests
const DefaultTimeout = 30 * time.Second

// Client is the interface for the coordinator API client
type Client interface {
	// Health Check
	HealthCheck(ctx context.Context) (*types.HealthResponse, error)

	// Submit Endpoints
	SubmitJob(ctx context.Context, req types.SubmitJobRequest) (*types.JobStatusInfo, bool, error)
	CheckJob(ctx context.Context, req types.SubmitJobRequest) (*types.CheckJobResponse, error)
	GetJob(ctx context.Context, jobID string) (*types.JobStatusInfo, error)

	// Runner Endpoints
	RegisterRunner(ctx context.Context, req types.RegisterRunnerRequest) (*types.RegisterRunnerResponse, error)
	VerifyRunner(ctx context.Context) (*types.VerifyRunnerResponse, error)
	AvailableJobs(ctx context.Context, jobTypes []string) (*types.AvailableJobsResponse, error)
	ClaimJob(ctx context.Context, jobID string) (*types.ClaimJobResponse, error)
	SendHeartbeat(ctx context.Context, jobID string, req types.HeartbeatRequest) error
	CompleteJob(ctx context.Context, jobID string, req types.CompleteJobRequest) error
	ErrorJob(ctx context.Context, jobID string, req types.ErrorJobRequest) error

	// Admin Endpoints
	AdminStats(ctx context.Context) (*types.StatsResponse, error)
	AdminListJobs(ctx context.Context, status string, limit int) (*types.ListJobsResponse, error)
	AdminDeleteJob(ctx context.Context, jobID string) error
	AdminBatchDeleteJobs(ctx context.Context, jobIDs []string) (*types.BatchDeleteResponse, error)
	AdminListRunners(ctx context.Context) (*types.ListRunnersResponse, error)
	AdminGetRunner(ctx context.Context, runnerID string) (*types.RunnerDetailResponse, error)
}

var _ Client = &APIClient{}

// Options contains configuration options for the API client
type Options struct {
	// BaseURL is the base URL of the API
	BaseURL string

	// AuthToken is the bearer credential sent with every request
	AuthToken string

	// RunnerID is sent as X-Runner-ID on runner endpoints when set
	RunnerID string

	// Timeout is the request timeout
	Timeout time.Duration
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		BaseURL: routes.DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// APIClient implements the Client interface
type APIClient struct {
	baseURL   string
	timeout   time.Duration
	AuthToken string
	RunnerID  string
}

// NewClient creates a new API client with the given options
func NewClient(opts *Options) (*APIClient, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	return &APIClient{
		baseURL:   opts.BaseURL,
		timeout:   opts.Timeout,
		AuthToken: opts.AuthToken,
		RunnerID:  opts.RunnerID,
	}, nil
}

// createAgent creates a new fiber Agent for the given method and endpoint
func (c *APIClient) createAgent(ctx context.Context, method, endpoint string, body interface{}) (*fiber.Agent, error) {
	fullURL := c.baseURL + endpoint

	var agent *fiber.Agent
	switch method {
	case http.MethodGet:
		agent = fiber.Get(fullURL)
	case http.MethodPost:
		agent = fiber.Post(fullURL)
	case http.MethodDelete:
		agent = fiber.Delete(fullURL)
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(c.timeout)
	}

	agent.Set("Content-Type", "application/json")
	agent.Set("Accept", "application/json")
	if c.AuthToken != "" {
		agent.Set("Authorization", "Bearer "+c.AuthToken)
	}
	if c.RunnerID != "" {
		agent.Set("X-Runner-ID", c.RunnerID)
	}

	if body != nil {
		agent.JSON(body)
	}

	return agent, nil
}

// doRequest sends the HTTP request and decodes the response into v. It
// returns the response status code.
func (c *APIClient) doRequest(agent *fiber.Agent, v interface{}) (int, error) {
	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return 0, fmt.Errorf("error sending request: %w", errs[0])
	}

	if statusCode < 200 || statusCode >= 300 {
		var apiErr types.ErrorResponse
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
			return statusCode, &fiber.Error{Code: statusCode, Message: apiErr.Error}
		}
		return statusCode, &fiber.Error{Code: statusCode, Message: string(body)}
	}

	if v != nil && len(body) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return statusCode, fmt.Errorf("error decoding response: %w", err)
		}
	}

	return statusCode, nil
}

// executeRequest creates an agent, sends the request, and decodes the response
func (c *APIClient) executeRequest(ctx context.Context, method, endpoint string, body, response interface{}) error {
	agent, err := c.createAgent(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	_, err = c.doRequest(agent, response)
	return err
}

// HealthCheck returns the coordinator liveness response
func (c *APIClient) HealthCheck(ctx context.Context) (*types.HealthResponse, error) {
	var resp types.HealthResponse
	err := c.executeRequest(ctx, http.MethodGet, routes.Health, nil, &resp)
	return &resp, err
}

// SubmitJob creates or resolves a job. The boolean reports whether a new job
// was created.
func (c *APIClient) SubmitJob(ctx context.Context, req types.SubmitJobRequest) (*types.JobStatusInfo, bool, error) {
	agent, err := c.createAgent(ctx, http.MethodPost, routes.JobsSubmit, req)
	if err != nil {
		return nil, false, err
	}

	var info types.JobStatusInfo
	statusCode, err := c.doRequest(agent, &info)
	if err != nil {
		return nil, false, err
	}
	return &info, statusCode == http.StatusCreated, nil
}

// CheckJob resolves a submission without creating a job
func (c *APIClient) CheckJob(ctx context.Context, req types.SubmitJobRequest) (*types.CheckJobResponse, error) {
	var resp types.CheckJobResponse
	err := c.executeRequest(ctx, http.MethodPost, routes.JobsCheck, req, &resp)
	return &resp, err
}

// GetJob returns a job's status by id
func (c *APIClient) GetJob(ctx context.Context, jobID string) (*types.JobStatusInfo, error) {
	var resp types.JobStatusInfo
	err := c.executeRequest(ctx, http.MethodGet, fmt.Sprintf(routes.JobByID, jobID), nil, &resp)
	return &resp, err
}

// RegisterRunner registers a runner and returns its identity
func (c *APIClient) RegisterRunner(ctx context.Context, req types.RegisterRunnerRequest) (*types.RegisterRunnerResponse, error) {
	var resp types.RegisterRunnerResponse
	err := c.executeRequest(ctx, http.MethodPost, routes.RunnerRegister, req, &resp)
	return &resp, err
}

// VerifyRunner confirms the configured runner id is registered
func (c *APIClient) VerifyRunner(ctx context.Context) (*types.VerifyRunnerResponse, error) {
	var resp types.VerifyRunnerResponse
	err := c.executeRequest(ctx, http.MethodGet, routes.RunnerVerify, nil, &resp)
	return &resp, err
}

// AvailableJobs lists pending jobs matching the given capabilities
func (c *APIClient) AvailableJobs(ctx context.Context, jobTypes []string) (*types.AvailableJobsResponse, error) {
	endpoint := routes.RunnerJobsAvailable
	if len(jobTypes) > 0 {
		query := url.Values{}
		for _, t := range jobTypes {
			query.Add("types[]", t)
		}
		endpoint += "?" + query.Encode()
	}

	var resp types.AvailableJobsResponse
	err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &resp)
	return &resp, err
}

// ClaimJob attempts to claim a pending job. A conflict is returned as a
// fiber.Error with code 409.
func (c *APIClient) ClaimJob(ctx context.Context, jobID string) (*types.ClaimJobResponse, error) {
	var resp types.ClaimJobResponse
	err := c.executeRequest(ctx, http.MethodPost, fmt.Sprintf(routes.RunnerJobClaim, jobID), nil, &resp)
	return &resp, err
}

// SendHeartbeat reports progress on a claimed job
func (c *APIClient) SendHeartbeat(ctx context.Context, jobID string, req types.HeartbeatRequest) error {
	return c.executeRequest(ctx, http.MethodPost, fmt.Sprintf(routes.RunnerJobHeartbeat, jobID), req, nil)
}

// CompleteJob reports a successful terminal transition
func (c *APIClient) CompleteJob(ctx context.Context, jobID string, req types.CompleteJobRequest) error {
	return c.executeRequest(ctx, http.MethodPost, fmt.Sprintf(routes.RunnerJobComplete, jobID), req, nil)
}

// ErrorJob reports a failed terminal transition
func (c *APIClient) ErrorJob(ctx context.Context, jobID string, req types.ErrorJobRequest) error {
	return c.executeRequest(ctx, http.MethodPost, fmt.Sprintf(routes.RunnerJobError, jobID), req, nil)
}

// AdminStats returns job counts by status and runner activity
func (c *APIClient) AdminStats(ctx context.Context) (*types.StatsResponse, error) {
	var resp types.StatsResponse
	err := c.executeRequest(ctx, http.MethodGet, routes.AdminStats, nil, &resp)
	return &resp, err
}

// AdminListJobs lists jobs, optionally filtered by status
func (c *APIClient) AdminListJobs(ctx context.Context, status string, limit int) (*types.ListJobsResponse, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	if limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", limit))
	}
	endpoint := routes.AdminJobs
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var resp types.ListJobsResponse
	err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &resp)
	return &resp, err
}

// AdminDeleteJob deletes a single job
func (c *APIClient) AdminDeleteJob(ctx context.Context, jobID string) error {
	return c.executeRequest(ctx, http.MethodDelete, fmt.Sprintf(routes.AdminJobByID, jobID), nil, nil)
}

// AdminBatchDeleteJobs deletes a batch of jobs
func (c *APIClient) AdminBatchDeleteJobs(ctx context.Context, jobIDs []string) (*types.BatchDeleteResponse, error) {
	var resp types.BatchDeleteResponse
	err := c.executeRequest(ctx, http.MethodPost, routes.AdminJobsBatchDelete,
		types.BatchDeleteRequest{JobIDs: jobIDs}, &resp)
	return &resp, err
}

// AdminListRunners lists runners with derived activeness
func (c *APIClient) AdminListRunners(ctx context.Context) (*types.ListRunnersResponse, error) {
	var resp types.ListRunnersResponse
	err := c.executeRequest(ctx, http.MethodGet, routes.AdminRunners, nil, &resp)
	return &resp, err
}

// AdminGetRunner returns one runner and its recent jobs
func (c *APIClient) AdminGetRunner(ctx context.Context, runnerID string) (*types.RunnerDetailResponse, error) {
	var resp types.RunnerDetailResponse
	err := c.executeRequest(ctx, http.MethodGet, fmt.Sprintf(routes.AdminRunnerByID, runnerID), nil, &resp)
	return &resp, err
}
