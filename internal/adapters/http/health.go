package http

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// readyTimeout bounds all backend pings of one readiness probe.
const readyTimeout = 3 * time.Second

// HealthHandler reports liveness and the size of the collection.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).Round(time.Second).String(),
			"version": "dev",
			"records": deps.Records.Count(),
			"clients": deps.Hub.Len(),
		})
	}
}

// ReadyHandler pings every configured backend concurrently and answers 503
// when any of them fails.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()

		var (
			mu     sync.Mutex
			wg     sync.WaitGroup
			checks = make(map[string]string, len(deps.Checks))
			ready  = true
		)
		for name, p := range deps.Checks {
			name, p := name, p
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := p.Ping(ctx)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					checks[name] = "error: " + err.Error()
					ready = false
					return
				}
				checks[name] = "ok"
			}()
		}
		wg.Wait()

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": checks})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": checks})
	}
}
