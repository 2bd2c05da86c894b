package main

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"

	kafkaadapter "github.com/samirrijal/phonemap/internal/adapters/kafka"
	natsadapter "github.com/samirrijal/phonemap/internal/adapters/nats"
	"github.com/samirrijal/phonemap/internal/core/domain"
	"github.com/samirrijal/phonemap/internal/core/ports"
	"github.com/samirrijal/phonemap/internal/core/usecases"
	"github.com/samirrijal/phonemap/internal/pkg/config"
	"github.com/samirrijal/phonemap/internal/pkg/metrics"
	"github.com/samirrijal/phonemap/internal/workflows"
)

// openPublisher connects the broker selected by events.driver. It returns nil
// when events are disabled.
func openPublisher(cfg config.EventsConfig) (ports.EventPublisher, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "nats":
		p, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "kafka":
		p, err := kafkaadapter.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}

// countingPublisher records publish failures per driver.
type countingPublisher struct {
	ports.EventPublisher
	driver string
}

func (p countingPublisher) PublishRecordEvent(ctx context.Context, event *domain.RecordEvent) error {
	err := p.EventPublisher.PublishRecordEvent(ctx, event)
	if err != nil {
		metrics.EventPublishErrors.WithLabelValues(p.driver).Inc()
	}
	return err
}

// submitBackend is the configured Submitter and whatever must be stopped with it.
type submitBackend struct {
	ports.Submitter
	stop func()
}

// openSubmitter returns the in-process delayed submitter, or a Temporal-backed
// one with its worker running in this process.
func openSubmitter(cfg config.SubmitConfig, records *usecases.RecordService) (*submitBackend, error) {
	if !cfg.Temporal.Enabled {
		return &submitBackend{
			Submitter: usecases.NewDelayedSubmitter(records, cfg.Delay),
			stop:      func() {},
		}, nil
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("temporal client: %w", err)
	}

	w := workflows.NewWorker(c, cfg.Temporal.TaskQueue, records)
	if err := w.Start(); err != nil {
		c.Close()
		return nil, fmt.Errorf("temporal worker: %w", err)
	}
	slog.Info("temporal submit worker started", "task_queue", cfg.Temporal.TaskQueue)

	return &submitBackend{
		Submitter: workflows.NewTemporalSubmitter(c, cfg.Temporal.TaskQueue, cfg.Delay),
		stop: func() {
			w.Stop()
			c.Close()
		},
	}, nil
}
