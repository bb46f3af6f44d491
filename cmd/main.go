package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/flatironinstitute/runpack/internal/api/v1/middleware"
	"github.com/flatironinstitute/runpack/internal/api/v1/routes"
	"github.com/flatironinstitute/runpack/internal/app"
	"github.com/flatironinstitute/runpack/internal/config"
	"github.com/flatironinstitute/runpack/internal/db"
	"github.com/flatironinstitute/runpack/internal/db/repos"
	"github.com/flatironinstitute/runpack/internal/freshness"
	"github.com/flatironinstitute/runpack/internal/logger"
	"github.com/flatironinstitute/runpack/internal/metrics"
	"github.com/flatironinstitute/runpack/internal/notify"
	"github.com/flatironinstitute/runpack/internal/services"
)

func main() {
	// A missing .env file is fine; env vars may be set directly
	_ = godotenv.Load()

	logger.InitializeAndConfigure()

	database, err := db.New(db.Options{
		Host:     config.GetEnv(config.EnvDBHost, ""),
		User:     config.GetEnv(config.EnvDBUser, ""),
		Password: config.GetEnv(config.EnvDBPassword, ""),
		DBName:   config.GetEnv(config.EnvDBName, ""),
		Port:     config.GetEnvInt(config.EnvDBPort, 0),
	})
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	jobRepo := repos.NewJobRepository(database)
	runnerRepo := repos.NewRunnerRepository(database)
	collector := metrics.NewCollector()
	notifier := notify.New(
		config.GetEnv(config.EnvNotifyURL, ""),
		config.GetEnv(config.EnvNotifyPublishKey, ""),
	)
	if notifier.Enabled() {
		logger.Info("Job notifications enabled")
	} else {
		logger.Info("Job notifications disabled (no relay configured)")
	}

	jobService := services.NewJobService(jobRepo, runnerRepo, freshness.NewChecker(), notifier, collector)
	runnerService := services.NewRunnerService(runnerRepo, jobRepo)

	fiberApp := app.New(routes.Config{
		Auth: middleware.AuthConfig{
			SubmitKey: config.GetEnv(config.EnvSubmitAPIKey, ""),
			RunnerKey: config.GetEnv(config.EnvRunnerAPIKey, ""),
			AdminKey:  config.GetEnv(config.EnvAdminAPIKey, ""),
		},
		JobService:    jobService,
		RunnerService: runnerService,
		Metrics:       collector,
	})

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	wg.Add(1)
	go services.LaunchSweeper(ctx, &wg, jobService)

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Infof("Received signal %s, shutting down gracefully...", sig)
		cancel()
		if err := fiberApp.Shutdown(); err != nil {
			logger.Errorf("Error during server shutdown: %v", err)
		}
	}()

	port := config.GetEnv(config.EnvServerPort, config.DefaultPort)
	if _, err := strconv.Atoi(port); err != nil {
		logger.Fatalf("Invalid port %q", port)
	}

	logger.Infof("Coordinator listening on :%s", port)
	if err := fiberApp.Listen(":" + port); err != nil {
		logger.Fatalf("Server error: %v", err)
	}

	wg.Wait()
	logger.Info("Coordinator stopped")
}
