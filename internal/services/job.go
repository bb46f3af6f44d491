package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flatironinstitute/runpack/internal/config"
	"github.com/flatironinstitute/runpack/internal/db/models"
	"github.com/flatironinstitute/runpack/internal/db/repos"
	"github.com/flatironinstitute/runpack/internal/freshness"
	"github.com/flatironinstitute/runpack/internal/jobhash"
	"github.com/flatironinstitute/runpack/internal/logger"
	"github.com/flatironinstitute/runpack/internal/metrics"
	"github.com/flatironinstitute/runpack/internal/notify"
	"github.com/flatironinstitute/runpack/internal/validation"
	"github.com/flatironinstitute/runpack/pkg/types"
)

// TimeoutErrorMessage is written into jobs failed by the stale sweeper.
const TimeoutErrorMessage = "Job timed out - no heartbeat received"

// JobService implements the job lifecycle: deduplicated submission, the
// claim/heartbeat/terminal transitions, cache-freshness validation, and the
// stale sweeper.
type JobService struct {
	jobs     *repos.JobRepository
	runners  *repos.RunnerRepository
	checker  *freshness.Checker
	notifier *notify.Notifier
	metrics  *metrics.Collector
}

// NewJobService creates a new job service instance
func NewJobService(
	jobs *repos.JobRepository,
	runners *repos.RunnerRepository,
	checker *freshness.Checker,
	notifier *notify.Notifier,
	collector *metrics.Collector,
) *JobService {
	return &JobService{
		jobs:     jobs,
		runners:  runners,
		checker:  checker,
		notifier: notifier,
		metrics:  collector,
	}
}

// SubmitResult reports the outcome of a submission.
type SubmitResult struct {
	Job     *types.JobStatusInfo
	Created bool
}

// Submit creates a job for the given type and parameters, or resolves the
// submission to the existing job with the same canonical fingerprint.
//
// Races between concurrent submits of the same fingerprint are settled by the
// unique hash constraint: the loser re-reads the winner's row and continues as
// a cache hit.
func (s *JobService) Submit(ctx context.Context, jobType string, params json.RawMessage) (*SubmitResult, error) {
	if err := validation.ValidateSubmission(jobType, params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	hash, err := jobhash.Compute(jobType, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	job, err := s.jobs.GetByHash(ctx, hash)
	if errors.Is(err, repos.ErrJobNotFound) {
		created := &models.Job{
			ID:          jobhash.NewID(),
			JobHash:     hash,
			JobType:     jobType,
			InputParams: params,
			Status:      models.JobStatusPending,
		}
		createErr := s.jobs.Create(ctx, created)
		if createErr == nil {
			logger.InfoWithFields("Created new job", map[string]interface{}{
				"job_id":   created.ID,
				"job_hash": created.JobHash,
				"job_type": created.JobType,
			})
			s.metrics.RecordCreated()
			s.notifier.NotifyNewJob(created.ID, created.JobHash, created.JobType)
			return &SubmitResult{Job: s.statusInfo(created), Created: true}, nil
		}
		if !errors.Is(createErr, repos.ErrDuplicateHash) {
			return nil, createErr
		}
		// A concurrent submit won the insert; fall through to its row.
		job, err = s.jobs.GetByHash(ctx, hash)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.RecordDeduplicated()
	info, err := s.resolveExisting(ctx, job)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{Job: info, Created: false}, nil
}

// Check resolves a submission without ever creating a row.
func (s *JobService) Check(ctx context.Context, jobType string, params json.RawMessage) (*types.CheckJobResponse, error) {
	if err := validation.ValidateSubmission(jobType, params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	hash, err := jobhash.Compute(jobType, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	job, err := s.jobs.GetByHash(ctx, hash)
	if errors.Is(err, repos.ErrJobNotFound) {
		return &types.CheckJobResponse{Exists: false}, nil
	}
	if err != nil {
		return nil, err
	}

	info, err := s.resolveExisting(ctx, job)
	if err != nil {
		return nil, err
	}
	return &types.CheckJobResponse{Exists: true, Job: info}, nil
}

// resolveExisting applies the cache-hit policy to a stored job: completed
// results are probed for freshness and deleted when stale, failed jobs carry
// their stored error, and live jobs report their current status.
func (s *JobService) resolveExisting(ctx context.Context, job *models.Job) (*types.JobStatusInfo, error) {
	if job.Status != models.JobStatusCompleted {
		return s.statusInfo(job), nil
	}

	start := time.Now()
	fresh := s.checker.Valid(ctx, job.OutputData)
	s.metrics.ObserveProbe(time.Since(start).Seconds())

	if fresh {
		return s.statusInfo(job), nil
	}

	// Stale cloud data: drop the cached row and report it as expired. The
	// delete is unconditional and idempotent, so concurrent probes may race
	// on it freely.
	if _, err := s.jobs.Delete(ctx, job.ID); err != nil {
		return nil, err
	}
	logger.InfoWithFields("Expired stale cached result", map[string]interface{}{
		"job_id":   job.ID,
		"job_hash": job.JobHash,
	})
	s.metrics.RecordExpired()

	expired := s.statusInfo(job)
	expired.Status = models.JobStatusExpired
	expired.Result = nil
	return expired, nil
}

// Get returns the status view of a job by id.
func (s *JobService) Get(ctx context.Context, id string) (*types.JobStatusInfo, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if errors.Is(err, repos.ErrJobNotFound) {
		return nil, fmt.Errorf("%w: job %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return s.statusInfo(job), nil
}

// Available lists pending jobs matching the runner's capability set.
func (s *JobService) Available(ctx context.Context, runnerID string, jobTypes []string, limit int) (*types.AvailableJobsResponse, error) {
	if err := s.touchRunner(ctx, runnerID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > models.MaxLimit {
		limit = models.DefaultLimit
	}

	jobs, err := s.jobs.ListAvailable(ctx, jobTypes, limit)
	if err != nil {
		return nil, err
	}

	resp := &types.AvailableJobsResponse{Jobs: make([]types.AvailableJob, 0, len(jobs))}
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, types.AvailableJob{
			JobID:       job.ID,
			JobType:     job.JobType,
			InputParams: job.InputParams,
			CreatedAt:   job.CreatedAt,
		})
	}
	return resp, nil
}

// Claim attempts the atomic pending->claimed transition for the runner.
func (s *JobService) Claim(ctx context.Context, jobID, runnerID string) (*types.ClaimJobResponse, error) {
	if err := s.touchRunner(ctx, runnerID); err != nil {
		return nil, err
	}

	ok, err := s.jobs.Claim(ctx, jobID, runnerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race, or the job does not exist at all.
		if _, getErr := s.jobs.GetByID(ctx, jobID); errors.Is(getErr, repos.ErrJobNotFound) {
			return nil, fmt.Errorf("%w: job %s", ErrNotFound, jobID)
		}
		return nil, ErrConflict
	}

	s.metrics.RecordClaimed()
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	logger.InfoWithFields("Job claimed", map[string]interface{}{
		"job_id":    job.ID,
		"runner_id": runnerID,
	})

	var claimedAt int64
	if job.ClaimedAt != nil {
		claimedAt = *job.ClaimedAt
	}
	return &types.ClaimJobResponse{
		JobID:       job.ID,
		JobType:     job.JobType,
		InputParams: job.InputParams,
		Status:      job.Status,
		ClaimedAt:   claimedAt,
	}, nil
}

// Heartbeat records progress and console output and extends the job's liveness.
func (s *JobService) Heartbeat(ctx context.Context, jobID, runnerID string, req *types.HeartbeatRequest) error {
	if err := validation.ValidateConsoleOutput(req.ConsoleOutput); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.touchRunner(ctx, runnerID); err != nil {
		return err
	}

	ok, err := s.jobs.Heartbeat(ctx, jobID, runnerID, req.ProgressCurrent, req.ProgressTotal, req.ConsoleOutput)
	if err != nil {
		return err
	}
	if !ok {
		return s.transitionRefused(ctx, jobID)
	}
	return nil
}

// Complete records a successful terminal transition with the job's output.
func (s *JobService) Complete(ctx context.Context, jobID, runnerID string, req *types.CompleteJobRequest) error {
	if err := validation.ValidateOutput(req.OutputData); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := validation.ValidateConsoleOutput(req.ConsoleOutput); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.touchRunner(ctx, runnerID); err != nil {
		return err
	}

	ok, err := s.jobs.Complete(ctx, jobID, runnerID, req.OutputData, req.ConsoleOutput)
	if err != nil {
		return err
	}
	if !ok {
		return s.transitionRefused(ctx, jobID)
	}

	s.metrics.RecordCompleted()
	logger.InfoWithFields("Job completed", map[string]interface{}{
		"job_id":    jobID,
		"runner_id": runnerID,
	})
	return nil
}

// Fail records a failed terminal transition with the runner's error message.
func (s *JobService) Fail(ctx context.Context, jobID, runnerID string, req *types.ErrorJobRequest) error {
	if err := validation.ValidateErrorMessage(req.ErrorMessage); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := validation.ValidateConsoleOutput(req.ConsoleOutput); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.touchRunner(ctx, runnerID); err != nil {
		return err
	}

	ok, err := s.jobs.Fail(ctx, jobID, runnerID, req.ErrorMessage, req.ConsoleOutput)
	if err != nil {
		return err
	}
	if !ok {
		return s.transitionRefused(ctx, jobID)
	}

	s.metrics.RecordFailed()
	logger.WarnWithFields("Job failed", map[string]interface{}{
		"job_id":    jobID,
		"runner_id": runnerID,
		"error":     req.ErrorMessage,
	})
	return nil
}

// transitionRefused distinguishes an unknown job from an ownership or state
// violation after a conditional update changed no rows.
func (s *JobService) transitionRefused(ctx context.Context, jobID string) error {
	if _, err := s.jobs.GetByID(ctx, jobID); errors.Is(err, repos.ErrJobNotFound) {
		return fmt.Errorf("%w: job %s", ErrNotFound, jobID)
	}
	return ErrNotClaimedByRunner
}

// Sweep fails every live job whose heartbeat is older than the configured
// threshold. Returns the number of jobs transitioned.
func (s *JobService) Sweep(ctx context.Context) (int64, error) {
	swept, err := s.jobs.SweepStale(ctx, config.HeartbeatTimeout, TimeoutErrorMessage)
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		logger.Warnf("Stale sweeper failed %d job(s) with no recent heartbeat", swept)
		s.metrics.RecordSwept(swept)
	}
	return swept, nil
}

// List returns jobs for the admin surface.
func (s *JobService) List(ctx context.Context, opts *models.ListOptions) ([]models.Job, error) {
	return s.jobs.List(ctx, opts)
}

// GetDetail returns the full stored job row, input/output/console included.
func (s *JobService) GetDetail(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if errors.Is(err, repos.ErrJobNotFound) {
		return nil, fmt.Errorf("%w: job %s", ErrNotFound, id)
	}
	return job, err
}

// Delete removes a job by id.
func (s *JobService) Delete(ctx context.Context, id string) error {
	ok, err := s.jobs.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: job %s", ErrNotFound, id)
	}
	return nil
}

// BatchDelete removes a batch of jobs and reports per-id results.
func (s *JobService) BatchDelete(ctx context.Context, ids []string) (*types.BatchDeleteResponse, error) {
	deleted, failed, err := s.jobs.DeleteMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &types.BatchDeleteResponse{Deleted: deleted, Failed: failed}, nil
}

// Stats returns job counts by status and runner activity.
func (s *JobService) Stats(ctx context.Context) (*types.StatsResponse, error) {
	counts, err := s.jobs.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	jobCounts := make(map[string]int64, len(counts))
	for status, count := range counts {
		jobCounts[status.String()] = count
	}

	runners, err := s.runners.List(ctx)
	if err != nil {
		return nil, err
	}
	active := 0
	for i := range runners {
		if runners[i].Active(config.RunnerActiveWindow) {
			active++
		}
	}

	return &types.StatsResponse{
		Jobs: jobCounts,
		Runners: types.RunnerStats{
			Total:  len(runners),
			Active: active,
		},
	}, nil
}

// touchRunner refreshes the runner's last_seen and rejects unknown runner ids.
func (s *JobService) touchRunner(ctx context.Context, runnerID string) error {
	ok, err := s.runners.Touch(ctx, runnerID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: runner %s", ErrNotFound, runnerID)
	}
	return nil
}

func (s *JobService) statusInfo(job *models.Job) *types.JobStatusInfo {
	info := &types.JobStatusInfo{
		JobID:           job.ID,
		JobHash:         job.JobHash,
		JobType:         job.JobType,
		Status:          job.Status,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
		ProgressCurrent: job.ProgressCurrent,
		ProgressTotal:   job.ProgressTotal,
	}
	switch job.Status {
	case models.JobStatusCompleted:
		info.Result = &types.JobResult{
			OutputData:    job.OutputData,
			ConsoleOutput: job.ConsoleOutput,
		}
	case models.JobStatusFailed:
		info.ErrorMessage = job.ErrorMessage
	}
	return info
}
