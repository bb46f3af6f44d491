package middleware

import (
	"crypto/subtle"
	"strings"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/flatironinstitute/runpack/pkg/types"
)

// HeaderRunnerID is the header carrying the caller's runner identity on
// per-job runner endpoints.
const HeaderRunnerID = "X-Runner-ID"

// runnerIDLocal is the fiber locals key the verified runner id is stored under.
const runnerIDLocal = "runner_id"

// AuthConfig holds the three independent role credentials. An unset
// credential disables its role entirely.
type AuthConfig struct {
	SubmitKey string
	RunnerKey string
	AdminKey  string
}

func bearerToken(c *fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}

func tokenMatches(token, key string) bool {
	if token == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(key)) == 1
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).
		JSON(types.ErrorResponse{Error: "missing or invalid authorization"})
}

// RequireSubmit authenticates the client submit role.
func RequireSubmit(cfg AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !tokenMatches(bearerToken(c), cfg.SubmitKey) {
			return unauthorized(c)
		}
		return c.Next()
	}
}

// RequireRunner authenticates the runner role.
func RequireRunner(cfg AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !tokenMatches(bearerToken(c), cfg.RunnerKey) {
			return unauthorized(c)
		}
		return c.Next()
	}
}

// RequireAdmin authenticates the admin role. The runner credential is
// accepted as a convenience so runner operators can inspect the queue.
func RequireAdmin(cfg AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if !tokenMatches(token, cfg.AdminKey) && !tokenMatches(token, cfg.RunnerKey) {
			return unauthorized(c)
		}
		return c.Next()
	}
}

// RequireRunnerID enforces the X-Runner-ID header and stashes its value for
// the handler.
func RequireRunnerID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		runnerID := c.Get(HeaderRunnerID)
		if runnerID == "" {
			return c.Status(fiber.StatusBadRequest).
				JSON(types.ErrorResponse{Error: "X-Runner-ID header is required"})
		}
		c.Locals(runnerIDLocal, runnerID)
		return c.Next()
	}
}

// RunnerID returns the runner id stored by RequireRunnerID.
func RunnerID(c *fiber.Ctx) string {
	id, _ := c.Locals(runnerIDLocal).(string)
	return id
}
