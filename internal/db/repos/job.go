package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/flatironinstitute/runpack/internal/db/models"
)

// ErrDuplicateHash is returned by Create when a job with the same hash already
// exists. The caller is expected to re-read by hash and continue.
var ErrDuplicateHash = errors.New("job with this hash already exists")

// ErrJobNotFound is returned when no job matches the requested id or hash.
var ErrJobNotFound = errors.New("job not found")

// JobRepository provides access to job-related database operations.
//
// Every state transition is expressed as a single conditional UPDATE whose
// WHERE clause encodes the precondition, so concurrent callers race on row
// count rather than on read-modify-write cycles.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new job repository instance
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// Create inserts a new pending job. Returns ErrDuplicateHash when the unique
// hash constraint rejects the insert.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	err := r.db.WithContext(ctx).Create(job).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateHash
	}
	return err
}

// GetByID retrieves a job by its ID
func (r *JobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// GetByHash retrieves a job by its deduplication hash
func (r *JobRepository) GetByHash(ctx context.Context, hash string) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).Where("job_hash = ?", hash).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job by hash: %w", err)
	}
	return &job, nil
}

// ListAvailable returns pending jobs whose type is in the given capability
// set, oldest first.
func (r *JobRepository) ListAvailable(ctx context.Context, jobTypes []string, limit int) ([]models.Job, error) {
	if len(jobTypes) == 0 {
		return nil, nil
	}
	var jobs []models.Job
	err := r.db.WithContext(ctx).
		Where("status = ? AND job_type IN ?", models.JobStatusPending, jobTypes).
		Order(models.JobCreatedAtField + " ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// ListByRunner returns the most recent jobs attributed to the given runner.
func (r *JobRepository) ListByRunner(ctx context.Context, runnerID string, limit int) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.WithContext(ctx).
		Where("claimed_by = ?", runnerID).
		Order(models.JobCreatedAtField + " DESC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// List returns jobs, newest first, optionally filtered by status.
func (r *JobRepository) List(ctx context.Context, opts *models.ListOptions) ([]models.Job, error) {
	var jobs []models.Job
	q := r.db.WithContext(ctx).Model(&models.Job{})
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}
	err := q.Order(models.JobCreatedAtField + " DESC").
		Limit(opts.ClampLimit()).Offset(opts.Offset).
		Find(&jobs).Error
	return jobs, err
}

// CountByStatus returns the number of jobs per status.
func (r *JobRepository) CountByStatus(ctx context.Context) (map[models.JobStatus]int64, error) {
	var rows []struct {
		Status models.JobStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	counts := make(map[models.JobStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Claim attempts the atomic pending->claimed transition. Returns true iff this
// caller won the row.
func (r *JobRepository) Claim(ctx context.Context, jobID, runnerID string) (bool, error) {
	now := nowMillis()
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", jobID, models.JobStatusPending).
		Updates(map[string]interface{}{
			"status":         models.JobStatusClaimed,
			"claimed_by":     runnerID,
			"claimed_at":     now,
			"last_heartbeat": now,
			"updated_at":     now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim job: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Heartbeat advances a live job to in_progress, records progress and console
// output, and extends liveness. Succeeds only for the claiming runner.
func (r *JobRepository) Heartbeat(ctx context.Context, jobID, runnerID string, current, total *int64, console string) (bool, error) {
	now := nowMillis()
	updates := map[string]interface{}{
		"status":         models.JobStatusInProgress,
		"last_heartbeat": now,
		"updated_at":     now,
	}
	if current != nil {
		updates["progress_current"] = *current
	}
	if total != nil {
		updates["progress_total"] = *total
	}
	if console != "" {
		updates["console_output"] = console
	}

	res := r.liveJobOwnedBy(ctx, jobID, runnerID).Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to heartbeat job: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Complete performs the terminal claimed|in_progress->completed transition.
func (r *JobRepository) Complete(ctx context.Context, jobID, runnerID string, output json.RawMessage, console string) (bool, error) {
	now := nowMillis()
	updates := map[string]interface{}{
		"status":         models.JobStatusCompleted,
		"output_data":    output,
		"last_heartbeat": now,
		"updated_at":     now,
	}
	if console != "" {
		updates["console_output"] = console
	}

	res := r.liveJobOwnedBy(ctx, jobID, runnerID).Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to complete job: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Fail performs the terminal claimed|in_progress->failed transition.
func (r *JobRepository) Fail(ctx context.Context, jobID, runnerID, errorMessage, console string) (bool, error) {
	now := nowMillis()
	updates := map[string]interface{}{
		"status":         models.JobStatusFailed,
		"error_message":  errorMessage,
		"last_heartbeat": now,
		"updated_at":     now,
	}
	if console != "" {
		updates["console_output"] = console
	}

	res := r.liveJobOwnedBy(ctx, jobID, runnerID).Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to fail job: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// liveJobOwnedBy scopes an update to a live job currently claimed by runnerID.
func (r *JobRepository) liveJobOwnedBy(ctx context.Context, jobID, runnerID string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND claimed_by = ? AND status IN ?",
			jobID, runnerID, []models.JobStatus{models.JobStatusClaimed, models.JobStatusInProgress})
}

// SweepStale bulk-fails every live job whose last heartbeat is older than the
// threshold. Returns the number of rows transitioned.
func (r *JobRepository) SweepStale(ctx context.Context, threshold time.Duration, errorMessage string) (int64, error) {
	now := nowMillis()
	cutoff := now - threshold.Milliseconds()
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("status IN ? AND last_heartbeat < ?",
			[]models.JobStatus{models.JobStatusClaimed, models.JobStatusInProgress}, cutoff).
		Updates(map[string]interface{}{
			"status":        models.JobStatusFailed,
			"error_message": errorMessage,
			"updated_at":    now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to sweep stale jobs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Delete removes a job row. Returns true iff a row was deleted.
func (r *JobRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Job{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete job: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// DeleteMany removes a batch of jobs and reports per-id success.
func (r *JobRepository) DeleteMany(ctx context.Context, ids []string) (deleted []string, failed []string, err error) {
	for _, id := range ids {
		ok, delErr := r.Delete(ctx, id)
		if delErr != nil {
			return deleted, failed, delErr
		}
		if ok {
			deleted = append(deleted, id)
		} else {
			failed = append(failed, id)
		}
	}
	return deleted, failed, nil
}
