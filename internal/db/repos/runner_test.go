package repos

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/flatironinstitute/runpack/internal/db/models"
)

type RunnerRepositoryTestSuite struct {
	DBRepositoryTestSuite
}

func TestRunnerRepository(t *testing.T) {
	suite.Run(t, new(RunnerRepositoryTestSuite))
}

func (s *RunnerRepositoryTestSuite) TestRegister() {
	runner := s.createTestRunner("render")

	found, err := s.runnerRepo.GetByID(s.ctx, runner.ID)
	s.NoError(err)
	s.Equal(runner.Name, found.Name)
	s.Equal(models.Capabilities{"render"}, found.Capabilities)
	s.NotZero(found.LastSeen)
}

func (s *RunnerRepositoryTestSuite) TestRegisterUpsert() {
	runner := s.createTestRunner("render")

	// Re-registering with the same id replaces name and capabilities
	updated := &models.Runner{
		ID:           runner.ID,
		Name:         "renamed",
		Capabilities: models.Capabilities{"render", "analyze"},
	}
	s.Require().NoError(s.runnerRepo.Register(s.ctx, updated))

	found, err := s.runnerRepo.GetByID(s.ctx, runner.ID)
	s.NoError(err)
	s.Equal("renamed", found.Name)
	s.Equal(models.Capabilities{"render", "analyze"}, found.Capabilities)

	runners, err := s.runnerRepo.List(s.ctx)
	s.NoError(err)
	s.Len(runners, 1)
}

func (s *RunnerRepositoryTestSuite) TestGetByIDNotFound() {
	_, err := s.runnerRepo.GetByID(s.ctx, "missing")
	s.ErrorIs(err, ErrRunnerNotFound)
}

func (s *RunnerRepositoryTestSuite) TestTouch() {
	runner := s.createTestRunner("render")

	ok, err := s.runnerRepo.Touch(s.ctx, runner.ID)
	s.NoError(err)
	s.True(ok)

	ok, err = s.runnerRepo.Touch(s.ctx, "missing")
	s.NoError(err)
	s.False(ok)
}

func (s *RunnerRepositoryTestSuite) TestList() {
	s.createTestRunner("render")
	s.createTestRunner("analyze")

	runners, err := s.runnerRepo.List(s.ctx)
	s.NoError(err)
	s.Len(runners, 2)
}
