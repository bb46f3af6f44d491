// Package routes wires the coordinator's HTTP endpoints to their handlers.
package routes

import (
	fiber "github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/flatironinstitute/runpack/internal/api/v1/handlers"
	"github.com/flatironinstitute/runpack/internal/api/v1/middleware"
	"github.com/flatironinstitute/runpack/internal/metrics"
	"github.com/flatironinstitute/runpack/internal/services"
)

// Config carries everything route registration needs.
type Config struct {
	Auth          middleware.AuthConfig
	JobService    *services.JobService
	RunnerService *services.RunnerService
	Metrics       *metrics.Collector
}

// Register configures all routes on the app
func Register(app *fiber.App, cfg Config) {
	jobHandler := handlers.NewJobHandler(cfg.JobService)
	runnerHandler := handlers.NewRunnerHandler(cfg.RunnerService, cfg.JobService)
	adminHandler := handlers.NewAdminHandler(cfg.JobService, cfg.RunnerService)

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Authorization, Content-Type, X-Runner-ID",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))
	app.Use(middleware.Logger())

	// Liveness and monitoring
	app.Get("/", handlers.Health)
	app.Get("/health", handlers.Health)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	// Per-class rate limiters; process-local by design
	submitLimit := middleware.RateLimit(
		middleware.NewRateLimiter(middleware.SubmitRateLimit), middleware.ByClientIP)
	statusLimit := middleware.RateLimit(
		middleware.NewRateLimiter(middleware.StatusRateLimit), middleware.ByClientIP)
	runnerLimit := middleware.RateLimit(
		middleware.NewRateLimiter(middleware.RunnerRateLimit), middleware.ByRunnerID)

	// Submit surface
	jobs := app.Group("/api/jobs", middleware.RequireSubmit(cfg.Auth))
	jobs.Post("/check", submitLimit, jobHandler.Check)
	jobs.Post("/submit", submitLimit, jobHandler.Submit)
	jobs.Get("/:id", statusLimit, jobHandler.GetStatus)

	// Runner surface
	runner := app.Group("/api/runner", middleware.RequireRunner(cfg.Auth))
	runner.Post("/register", runnerHandler.Register)
	runner.Get("/verify", middleware.RequireRunnerID(), runnerHandler.Verify)

	runnerJobs := runner.Group("/jobs", middleware.RequireRunnerID(), runnerLimit)
	runnerJobs.Get("/available", runnerHandler.Available)
	runnerJobs.Post("/:id/claim", runnerHandler.Claim)
	runnerJobs.Post("/:id/heartbeat", runnerHandler.Heartbeat)
	runnerJobs.Post("/:id/complete", runnerHandler.Complete)
	runnerJobs.Post("/:id/error", runnerHandler.Error)

	// Admin surface; no rate limit
	admin := app.Group("/api/admin", middleware.RequireAdmin(cfg.Auth))
	admin.Get("/stats", adminHandler.Stats)
	admin.Get("/jobs", adminHandler.ListJobs)
	admin.Post("/jobs/batch-delete", adminHandler.BatchDeleteJobs)
	admin.Get("/jobs/:id", adminHandler.GetJob)
	admin.Delete("/jobs/:id", adminHandler.DeleteJob)
	admin.Get("/runners", adminHandler.ListRunners)
	admin.Get("/runners/:id", adminHandler.GetRunner)
}
