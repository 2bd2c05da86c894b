package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/phonemap/internal/pkg/metrics"
)

const (
	// requestTimeout bounds REST handlers; it must exceed submit.delay.
	requestTimeout = 15 * time.Second

	rateLimitMax    = 300
	rateLimitWindow = time.Minute
)

// phonesSunset is when the /v1/phones alias goes away.
var phonesSunset = time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC)

// SetupRoutes installs the middleware chain and registers the page, REST,
// GraphQL, docs and websocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	useMiddleware(app)

	app.Get("/", IndexHandler())
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	recordRoutes(v1, deps)
	mapRoutes(v1, deps)

	app.Post("/graphql", GraphQLHandler(deps))
	SetupDocs(app)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps)))
}

func useMiddleware(app *fiber.App) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())
	app.Use(limiter.New(limiter.Config{
		Max:          rateLimitMax,
		Expiration:   rateLimitWindow,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return errTooManyRequests(c, "too many requests, please try again later")
		},
	}))
	app.Use(securityHeaders)
	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())
}

func securityHeaders(c *fiber.Ctx) error {
	c.Set("X-Content-Type-Options", "nosniff")
	c.Set("X-Frame-Options", "DENY")
	c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	c.Set("X-API-Version", "1.0.0")
	return c.Next()
}

// bounded wraps h so its context is cancelled after requestTimeout.
func bounded(h fiber.Handler) fiber.Handler {
	return timeout.NewWithContext(h, requestTimeout)
}

func recordRoutes(r fiber.Router, deps *Dependencies) {
	// static segments before :id
	r.Get("/records", bounded(ListRecordsHandler(deps)))
	r.Post("/records", bounded(CreateRecordHandler(deps)))
	r.Get("/records/nearby", bounded(NearbyRecordsHandler(deps)))
	r.Get("/records/export", bounded(ExportRecordsHandler(deps)))
	r.Get("/records/:id", bounded(GetRecordHandler(deps)))
	r.Delete("/records/:id", bounded(DeleteRecordHandler(deps)))
	r.Post("/records/:id/locate", bounded(LocateRecordHandler(deps)))

	r.Get("/phones",
		DeprecationMiddleware([]DeprecatedRoute{{
			Path:        "/v1/phones",
			SunsetDate:  phonesSunset,
			Alternative: "/v1/records",
		}}),
		bounded(ListRecordsHandler(deps)),
	)
}

func mapRoutes(r fiber.Router, deps *Dependencies) {
	r.Get("/map", MapHandler(deps))
	r.Post("/map/markers/:marker/click", MarkerClickHandler(deps))
	r.Get("/selection", SelectionHandler(deps))
	r.Get("/notices", NoticesHandler(deps))
	r.Get("/cities", CitiesHandler(deps))
}
