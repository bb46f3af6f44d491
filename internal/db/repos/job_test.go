package repos

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/flatironinstitute/runpack/internal/db/models"
	"github.com/flatironinstitute/runpack/internal/jobhash"
)

type JobRepositoryTestSuite struct {
	DBRepositoryTestSuite
}

func TestJobRepository(t *testing.T) {
	suite.Run(t, new(JobRepositoryTestSuite))
}

func (s *JobRepositoryTestSuite) TestCreate() {
	job := s.createTestJob()
	s.NotEmpty(job.ID)
	s.NotZero(job.CreatedAt)
}

func (s *JobRepositoryTestSuite) TestCreateDuplicateHash() {
	job := s.createTestJob()

	dup := &models.Job{
		ID:          jobhash.NewID(),
		JobHash:     job.JobHash,
		JobType:     job.JobType,
		InputParams: job.InputParams,
		Status:      models.JobStatusPending,
	}
	err := s.jobRepo.Create(s.ctx, dup)
	s.ErrorIs(err, ErrDuplicateHash)

	// The original row is the only one present
	found, err := s.jobRepo.GetByHash(s.ctx, job.JobHash)
	s.NoError(err)
	s.Equal(job.ID, found.ID)
}

func (s *JobRepositoryTestSuite) TestGetByID() {
	original := s.createTestJob()

	found, err := s.jobRepo.GetByID(s.ctx, original.ID)
	s.NoError(err)
	s.Equal(original.ID, found.ID)
	s.Equal(original.JobHash, found.JobHash)

	_, err = s.jobRepo.GetByID(s.ctx, "missing")
	s.ErrorIs(err, ErrJobNotFound)
}

func (s *JobRepositoryTestSuite) TestGetByHash() {
	original := s.createTestJob()

	found, err := s.jobRepo.GetByHash(s.ctx, original.JobHash)
	s.NoError(err)
	s.Equal(original.ID, found.ID)

	_, err = s.jobRepo.GetByHash(s.ctx, "missing")
	s.ErrorIs(err, ErrJobNotFound)
}

func (s *JobRepositoryTestSuite) TestListAvailable() {
	render := s.createTestJobOfType("render")
	s.createTestJobOfType("analyze")

	jobs, err := s.jobRepo.ListAvailable(s.ctx, []string{"render"}, 10)
	s.NoError(err)
	s.Len(jobs, 1)
	s.Equal(render.ID, jobs[0].ID)

	// No capabilities means no jobs
	jobs, err = s.jobRepo.ListAvailable(s.ctx, nil, 10)
	s.NoError(err)
	s.Empty(jobs)

	// Claimed jobs are no longer available
	runner := s.createTestRunner("render")
	ok, err := s.jobRepo.Claim(s.ctx, render.ID, runner.ID)
	s.NoError(err)
	s.True(ok)

	jobs, err = s.jobRepo.ListAvailable(s.ctx, []string{"render"}, 10)
	s.NoError(err)
	s.Empty(jobs)
}

func (s *JobRepositoryTestSuite) TestClaim() {
	job := s.createTestJob()
	runner := s.createTestRunner(job.JobType)

	ok, err := s.jobRepo.Claim(s.ctx, job.ID, runner.ID)
	s.NoError(err)
	s.True(ok)

	claimed, err := s.jobRepo.GetByID(s.ctx, job.ID)
	s.NoError(err)
	s.Equal(models.JobStatusClaimed, claimed.Status)
	s.Require().NotNil(claimed.ClaimedBy)
	s.Equal(runner.ID, *claimed.ClaimedBy)
	s.NotNil(claimed.ClaimedAt)
	s.NotNil(claimed.LastHeartbeat)
}

func (s *JobRepositoryTestSuite) TestClaimLosesRace() {
	job := s.createTestJob()
	winner := s.createTestRunner(job.JobType)
	loser := s.createTestRunner(job.JobType)

	ok, err := s.jobRepo.Claim(s.ctx, job.ID, winner.ID)
	s.NoError(err)
	s.True(ok)

	// Second claim must change no rows
	ok, err = s.jobRepo.Claim(s.ctx, job.ID, loser.ID)
	s.NoError(err)
	s.False(ok)

	claimed, err := s.jobRepo.GetByID(s.ctx, job.ID)
	s.NoError(err)
	s.Equal(winner.ID, *claimed.ClaimedBy)
}

func (s *JobRepositoryTestSuite) TestHeartbeat() {
	job, runner := s.claimedTestJob()

	current, total := int64(1), int64(2)
	ok, err := s.jobRepo.Heartbeat(s.ctx, job.ID, runner.ID, &current, &total, "half")
	s.NoError(err)
	s.True(ok)

	updated, err := s.jobRepo.GetByID(s.ctx, job.ID)
	s.NoError(err)
	s.Equal(models.JobStatusInProgress, updated.Status)
	s.Equal(int64(1), *updated.ProgressCurrent)
	s.Equal(int64(2), *updated.ProgressTotal)
	s.Equal("half", updated.ConsoleOutput)

	// Heartbeats keep succeeding while in progress
	ok, err = s.jobRepo.Heartbeat(s.ctx, job.ID, runner.ID, nil, nil, "")
	s.NoError(err)
	s.True(ok)
}

func (s *JobRepositoryTestSuite) TestHeartbeatWrongRunner() {
	job, _ := s.claimedTestJob()
	other := s.createTestRunner(job.JobType)

	ok, err := s.jobRepo.Heartbeat(s.ctx, job.ID, other.ID, nil, nil, "")
	s.NoError(err)
	s.False(ok)

	unchanged, err := s.jobRepo.GetByID(s.ctx, job.ID)
	s.NoError(err)
	s.Equal(models.JobStatusClaimed, unchanged.Status)
}

func (s *JobRepositoryTestSuite) TestComplete() {
	job, runner := s.claimedTestJob()

	ok, err := s.jobRepo.Complete(s.ctx, job.ID, runner.ID, json.RawMessage(`{"ok":true}`), "done")
	s.NoError(err)
	s.True(ok)

	completed, err := s.jobRepo.GetByID(s.ctx, job.ID)
	s.NoError(err)
	s.Equal(models.JobStatusCompleted, completed.Status)
	s.JSONEq(`{"ok":true}`, string(completed.OutputData))
	s.Equal("done", completed.ConsoleOutput)
}

func (s *JobRepositoryTestSuite) TestFail() {
	job, runner := s.claimedTestJob()

	ok, err := s.jobRepo.Fail(s.ctx, job.ID, runner.ID, "boom", "stack trace")
	s.NoError(err)
	s.True(ok)

	failed, err := s.jobRepo.GetByID(s.ctx, job.ID)
	s.NoError(err)
	s.Equal(models.JobStatusFailed, failed.Status)
	s.Equal("boom", failed.ErrorMessage)
}

func (s *JobRepositoryTestSuite) TestNoTransitionsAfterTerminal() {
	job, runner := s.claimedTestJob()

	ok, err := s.jobRepo.Complete(s.ctx, job.ID, runner.ID, json.RawMessage(`{}`), "")
	s.NoError(err)
	s.True(ok)

	ok, err = s.jobRepo.Heartbeat(s.ctx, job.ID, runner.ID, nil, nil, "")
	s.NoError(err)
	s.False(ok)

	ok, err = s.jobRepo.Fail(s.ctx, job.ID, runner.ID, "late", "")
	s.NoError(err)
	s.False(ok)

	ok, err = s.jobRepo.Complete(s.ctx, job.ID, runner.ID, json.RawMessage(`{}`), "")
	s.NoError(err)
	s.False(ok)

	final, err := s.jobRepo.GetByID(s.ctx, job.ID)
	s.NoError(err)
	s.Equal(models.JobStatusCompleted, final.Status)
	s.Empty(final.ErrorMessage)
}

func (s *JobRepositoryTestSuite) TestSweepStale() {
	job, _ := s.claimedTestJob()
	fresh, freshRunner := s.claimedTestJob()

	// Age the first job's heartbeat past the threshold
	stale := time.Now().Add(-2 * time.Minute).UnixMilli()
	err := s.db.Model(&models.Job{}).Where("id = ?", job.ID).
		Update("last_heartbeat", stale).Error
	s.Require().NoError(err)

	swept, err := s.jobRepo.SweepStale(s.ctx, 90*time.Second, "Job timed out - no heartbeat received")
	s.NoError(err)
	s.Equal(int64(1), swept)

	failed, err := s.jobRepo.GetByID(s.ctx, job.ID)
	s.NoError(err)
	s.Equal(models.JobStatusFailed, failed.Status)
	s.Equal("Job timed out - no heartbeat received", failed.ErrorMessage)

	untouched, err := s.jobRepo.GetByID(s.ctx, fresh.ID)
	s.NoError(err)
	s.Equal(models.JobStatusClaimed, untouched.Status)
	s.Equal(freshRunner.ID, *untouched.ClaimedBy)
}

func (s *JobRepositoryTestSuite) TestList() {
	s.createTestJob()
	job, runner := s.claimedTestJob()
	_, err := s.jobRepo.Complete(s.ctx, job.ID, runner.ID, json.RawMessage(`{}`), "")
	s.Require().NoError(err)

	jobs, err := s.jobRepo.List(s.ctx, &models.ListOptions{})
	s.NoError(err)
	s.Len(jobs, 2)

	jobs, err = s.jobRepo.List(s.ctx, &models.ListOptions{Status: models.JobStatusCompleted})
	s.NoError(err)
	s.Len(jobs, 1)
	s.Equal(job.ID, jobs[0].ID)
}

func (s *JobRepositoryTestSuite) TestListByRunner() {
	job, runner := s.claimedTestJob()
	s.createTestJob()

	jobs, err := s.jobRepo.ListByRunner(s.ctx, runner.ID, 10)
	s.NoError(err)
	s.Len(jobs, 1)
	s.Equal(job.ID, jobs[0].ID)
}

func (s *JobRepositoryTestSuite) TestCountByStatus() {
	s.createTestJob()
	s.createTestJob()
	job, runner := s.claimedTestJob()
	_, err := s.jobRepo.Fail(s.ctx, job.ID, runner.ID, "boom", "")
	s.Require().NoError(err)

	counts, err := s.jobRepo.CountByStatus(s.ctx)
	s.NoError(err)
	s.Equal(int64(2), counts[models.JobStatusPending])
	s.Equal(int64(1), counts[models.JobStatusFailed])
}

func (s *JobRepositoryTestSuite) TestDelete() {
	job := s.createTestJob()

	ok, err := s.jobRepo.Delete(s.ctx, job.ID)
	s.NoError(err)
	s.True(ok)

	_, err = s.jobRepo.GetByID(s.ctx, job.ID)
	s.ErrorIs(err, ErrJobNotFound)

	// Deleting again is a no-op
	ok, err = s.jobRepo.Delete(s.ctx, job.ID)
	s.NoError(err)
	s.False(ok)
}

func (s *JobRepositoryTestSuite) TestDeleteMany() {
	job1 := s.createTestJob()
	job2 := s.createTestJob()

	deleted, failed, err := s.jobRepo.DeleteMany(s.ctx, []string{job1.ID, "missing", job2.ID})
	s.NoError(err)
	s.ElementsMatch([]string{job1.ID, job2.ID}, deleted)
	s.Equal([]string{"missing"}, failed)
}
