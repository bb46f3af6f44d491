// Package routes defines the API paths shared by the server and the client.
package routes

// DefaultBaseURL is the default address of the coordinator API.
const DefaultBaseURL = "http://localhost:8080"

// Public endpoints
const (
	// Health is the liveness endpoint
	Health = "/health"
	// Metrics is the Prometheus scrape endpoint
	Metrics = "/metrics"
)

// Submit endpoints
const (
	// JobsCheck resolves a submission without creating a job
	JobsCheck = "/api/jobs/check"
	// JobsSubmit creates or resolves a job
	JobsSubmit = "/api/jobs/submit"
	// JobByID returns a job's status; format with the job id
	JobByID = "/api/jobs/%s"
)

// Runner endpoints
const (
	// RunnerRegister registers a runner
	RunnerRegister = "/api/runner/register"
	// RunnerVerify confirms a runner id exists
	RunnerVerify = "/api/runner/verify"
	// RunnerJobsAvailable lists claimable jobs
	RunnerJobsAvailable = "/api/runner/jobs/available"
	// RunnerJobClaim claims a pending job; format with the job id
	RunnerJobClaim = "/api/runner/jobs/%s/claim"
	// RunnerJobHeartbeat reports progress; format with the job id
	RunnerJobHeartbeat = "/api/runner/jobs/%s/heartbeat"
	// RunnerJobComplete reports success; format with the job id
	RunnerJobComplete = "/api/runner/jobs/%s/complete"
	// RunnerJobError reports failure; format with the job id
	RunnerJobError = "/api/runner/jobs/%s/error"
)

// Admin endpoints
const (
	// AdminStats summarizes job counts and runner activity
	AdminStats = "/api/admin/stats"
	// AdminJobs lists jobs
	AdminJobs = "/api/admin/jobs"
	// AdminJobByID returns or deletes one job; format with the job id
	AdminJobByID = "/api/admin/jobs/%s"
	// AdminJobsBatchDelete deletes a batch of jobs
	AdminJobsBatchDelete = "/api/admin/jobs/batch-delete"
	// AdminRunners lists runners
	AdminRunners = "/api/admin/runners"
	// AdminRunnerByID returns one runner; format with the runner id
	AdminRunnerByID = "/api/admin/runners/%s"
)
