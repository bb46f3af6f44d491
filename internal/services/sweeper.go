package services

import (
	"context"
	"sync"
	"time"

	"github.com/flatironinstitute/runpack/internal/config"
	"github.com/flatironinstitute/runpack/internal/logger"
)

// LaunchSweeper launches a goroutine that fails jobs whose runners stopped
// heartbeating. It sweeps once immediately so stale rows left over from a
// previous coordinator run are failed at startup.
func LaunchSweeper(ctx context.Context, wg *sync.WaitGroup, jobService *JobService) {
	defer wg.Done()

	logger.Info("Stale sweeper started")

	if _, err := jobService.Sweep(ctx); err != nil {
		logger.Errorf("Sweeper error during startup sweep: %v", err)
	}

	ticker := time.NewTicker(config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Sweeper received shutdown signal, stopping...")
			return
		case <-ticker.C:
			if _, err := jobService.Sweep(ctx); err != nil {
				logger.Errorf("Sweeper error: %v", err)
			}
		}
	}
}
