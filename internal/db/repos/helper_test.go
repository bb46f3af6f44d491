package repos

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/flatironinstitute/runpack/internal/db/models"
	"github.com/flatironinstitute/runpack/internal/jobhash"
)

// DBRepositoryTestSuite provides a base test suite for repository tests
type DBRepositoryTestSuite struct {
	suite.Suite
	db         *gorm.DB
	ctx        context.Context
	jobRepo    *JobRepository
	runnerRepo *RunnerRepository
	seq        int
}

func (s *DBRepositoryTestSuite) SetupTest() {
	// Create a fresh in-memory database per test
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
		TranslateError:                           true,
	})
	require.NoError(s.T(), err, "Failed to create in-memory database")

	err = db.AutoMigrate(&models.Job{}, &models.Runner{})
	require.NoError(s.T(), err, "Failed to run database migrations")

	s.db = db
	s.jobRepo = NewJobRepository(db)
	s.runnerRepo = NewRunnerRepository(db)
	s.ctx = context.Background()
	s.seq = 0
}

func (s *DBRepositoryTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	if err == nil && sqlDB != nil {
		_ = sqlDB.Close()
	}
}

// Helper methods for creating test data

func (s *DBRepositoryTestSuite) createTestJob() *models.Job {
	s.seq++
	return s.createTestJobOfType(fmt.Sprintf("test-type-%d", s.seq))
}

func (s *DBRepositoryTestSuite) createTestJobOfType(jobType string) *models.Job {
	params := json.RawMessage(fmt.Sprintf(`{"n":%d}`, s.seq))
	hash, err := jobhash.Compute(jobType, params)
	s.Require().NoError(err)

	job := &models.Job{
		ID:          jobhash.NewID(),
		JobHash:     hash,
		JobType:     jobType,
		InputParams: params,
		Status:      models.JobStatusPending,
	}
	s.Require().NoError(s.jobRepo.Create(s.ctx, job))
	s.seq++
	return job
}

func (s *DBRepositoryTestSuite) createTestRunner(capabilities ...string) *models.Runner {
	runner := &models.Runner{
		ID:           jobhash.NewID(),
		Name:         "test-runner",
		Capabilities: capabilities,
	}
	s.Require().NoError(s.runnerRepo.Register(s.ctx, runner))
	return runner
}

func (s *DBRepositoryTestSuite) claimedTestJob() (*models.Job, *models.Runner) {
	job := s.createTestJob()
	runner := s.createTestRunner(job.JobType)
	ok, err := s.jobRepo.Claim(s.ctx, job.ID, runner.ID)
	s.Require().NoError(err)
	s.Require().True(ok)
	return job, runner
}
