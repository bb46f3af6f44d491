package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/flatironinstitute/runpack/internal/config"
	"github.com/flatironinstitute/runpack/internal/db/models"
	"github.com/flatironinstitute/runpack/internal/db/repos"
	"github.com/flatironinstitute/runpack/internal/jobhash"
	"github.com/flatironinstitute/runpack/internal/logger"
	"github.com/flatironinstitute/runpack/pkg/types"
)

// recentJobsLimit caps the job history returned with a runner detail view.
const recentJobsLimit = 20

// RunnerService implements runner registration and the admin runner views.
type RunnerService struct {
	runners *repos.RunnerRepository
	jobs    *repos.JobRepository
}

// NewRunnerService creates a new runner service instance
func NewRunnerService(runners *repos.RunnerRepository, jobs *repos.JobRepository) *RunnerService {
	return &RunnerService{runners: runners, jobs: jobs}
}

// Register upserts a runner. A request without a runner id registers a new
// runner; a request carrying one re-registers it, keeping its identity stable
// across restarts.
func (s *RunnerService) Register(ctx context.Context, req *types.RegisterRunnerRequest) (*types.RegisterRunnerResponse, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(req.Capabilities) == 0 {
		return nil, fmt.Errorf("%w: capabilities must not be empty", ErrValidation)
	}

	runner := &models.Runner{
		ID:           req.RunnerID,
		Name:         req.Name,
		Capabilities: req.Capabilities,
	}
	if runner.ID == "" {
		runner.ID = jobhash.NewID()
	}

	if err := s.runners.Register(ctx, runner); err != nil {
		return nil, err
	}
	logger.InfoWithFields("Runner registered", map[string]interface{}{
		"runner_id":    runner.ID,
		"name":         runner.Name,
		"capabilities": []string(runner.Capabilities),
	})

	return &types.RegisterRunnerResponse{RunnerID: runner.ID, Name: runner.Name}, nil
}

// Verify confirms a runner id is registered and refreshes its last_seen.
func (s *RunnerService) Verify(ctx context.Context, runnerID string) (*types.VerifyRunnerResponse, error) {
	runner, err := s.runners.GetByID(ctx, runnerID)
	if errors.Is(err, repos.ErrRunnerNotFound) {
		return nil, fmt.Errorf("%w: runner %s", ErrNotFound, runnerID)
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.runners.Touch(ctx, runnerID); err != nil {
		return nil, err
	}
	return &types.VerifyRunnerResponse{RunnerID: runner.ID, Name: runner.Name}, nil
}

// List returns all runners with derived activeness.
func (s *RunnerService) List(ctx context.Context) (*types.ListRunnersResponse, error) {
	runners, err := s.runners.List(ctx)
	if err != nil {
		return nil, err
	}

	resp := &types.ListRunnersResponse{Runners: make([]types.RunnerInfo, 0, len(runners))}
	for i := range runners {
		resp.Runners = append(resp.Runners, runnerInfo(&runners[i]))
	}
	return resp, nil
}

// Get returns one runner with its recent jobs.
func (s *RunnerService) Get(ctx context.Context, runnerID string) (*types.RunnerDetailResponse, error) {
	runner, err := s.runners.GetByID(ctx, runnerID)
	if errors.Is(err, repos.ErrRunnerNotFound) {
		return nil, fmt.Errorf("%w: runner %s", ErrNotFound, runnerID)
	}
	if err != nil {
		return nil, err
	}

	jobs, err := s.jobs.ListByRunner(ctx, runnerID, recentJobsLimit)
	if err != nil {
		return nil, err
	}

	return &types.RunnerDetailResponse{
		Runner:     runnerInfo(runner),
		RecentJobs: jobs,
	}, nil
}

func runnerInfo(runner *models.Runner) types.RunnerInfo {
	return types.RunnerInfo{
		RunnerID:     runner.ID,
		Name:         runner.Name,
		Capabilities: runner.Capabilities,
		RegisteredAt: runner.RegisteredAt,
		LastSeen:     runner.LastSeen,
		Active:       runner.Active(config.RunnerActiveWindow),
	}
}
