package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/phonemap/internal/adapters/http"
	"github.com/samirrijal/phonemap/internal/adapters/storage"
	"github.com/samirrijal/phonemap/internal/core/ports"
	"github.com/samirrijal/phonemap/internal/core/usecases"
	"github.com/samirrijal/phonemap/internal/pkg/config"
	"github.com/samirrijal/phonemap/internal/pkg/logging"
	"github.com/samirrijal/phonemap/internal/pkg/telemetry"
)

const (
	bodyLimit     = 64 * 1024
	drainTimeout  = 10 * time.Second
	corsMaxAgeSec = 3600
)

func main() {
	cfg, err := config.Load("phonemap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		flush, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("tracing disabled", "error", err)
		} else {
			defer flush()
		}
	}

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	records := usecases.NewRecordService(store, nil, usecases.WithStorageKey(cfg.Storage.Key))
	if err := records.Init(ctx); err != nil {
		log.Fatalf("load records: %v", err)
	}
	defer records.Close()
	slog.Info("records loaded", "driver", cfg.Storage.Driver, "key", cfg.Storage.Key, "count", records.Count())

	pub, err := openPublisher(cfg.Events)
	if err != nil {
		slog.Warn("event broker unavailable, publishing disabled", "driver", cfg.Events.Driver, "error", err)
	}
	if pub != nil {
		defer pub.Close()
		records.Subscribe(usecases.PublishChanges(countingPublisher{EventPublisher: pub, driver: cfg.Events.Driver}))
	}

	submit, err := openSubmitter(cfg.Submit, records)
	if err != nil {
		log.Fatalf("submitter: %v", err)
	}
	defer submit.stop()

	notices := usecases.NewNoticeBoard(cfg.Notices.TTL)
	defer notices.Close()

	deps := http.NewDependencies(records, submit, notices)
	for name, backend := range map[string]any{"storage": store, "events": pub} {
		if p, ok := backend.(ports.Pinger); ok {
			deps.Checks[name] = p
		}
	}

	app := newApp(cfg.Server)
	http.SetupRoutes(app, deps)

	errc := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		errc <- app.Listen(addr)
	}()

	select {
	case err := <-errc:
		slog.Error("listen", "error", err)
		return
	case <-ctx.Done():
	}
	slog.Info("shutdown signal received, draining connections")

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(drainCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func newApp(cfg config.ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		BodyLimit:    bodyLimit,
		AppName:      "PhoneMap API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       corsMaxAgeSec,
	}))
	return app
}
