package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flatironinstitute/runpack/internal/db/models"
)

// ErrRunnerNotFound is returned when no runner matches the requested id.
var ErrRunnerNotFound = errors.New("runner not found")

// RunnerRepository provides access to runner-related database operations
type RunnerRepository struct {
	db *gorm.DB
}

// NewRunnerRepository creates a new runner repository instance
func NewRunnerRepository(db *gorm.DB) *RunnerRepository {
	return &RunnerRepository{db: db}
}

// Register upserts a runner by id, replacing its name and capabilities and
// marking it as just seen.
func (r *RunnerRepository) Register(ctx context.Context, runner *models.Runner) error {
	runner.LastSeen = nowMillis()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "capabilities", "last_seen",
		}),
	}).Create(runner).Error
	if err != nil {
		return fmt.Errorf("failed to register runner: %w", err)
	}
	return nil
}

// GetByID retrieves a runner by its ID
func (r *RunnerRepository) GetByID(ctx context.Context, id string) (*models.Runner, error) {
	var runner models.Runner
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&runner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get runner: %w", err)
	}
	return &runner, nil
}

// Touch updates the runner's last_seen timestamp. Returns true iff the runner
// exists.
func (r *RunnerRepository) Touch(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Runner{}).
		Where("id = ?", id).
		Update("last_seen", nowMillis())
	if res.Error != nil {
		return false, fmt.Errorf("failed to touch runner: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// List returns all registered runners, most recently seen first.
func (r *RunnerRepository) List(ctx context.Context) ([]models.Runner, error) {
	var runners []models.Runner
	err := r.db.WithContext(ctx).
		Order("last_seen DESC").
		Find(&runners).Error
	return runners, err
}
