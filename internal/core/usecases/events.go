package usecases

import (
	"context"
	"log/slog"
	"time"

	"github.com/samirrijal/phonemap/internal/core/ports"
)

// publishTimeout bounds how long a mutation waits on the broker.
const publishTimeout = 5 * time.Second

// PublishChanges returns a ChangeListener forwarding each committed change to
// pub. Publishing is best-effort: failures are logged and never undo the change.
func PublishChanges(pub ports.EventPublisher) ChangeListener {
	return func(ctx context.Context, change Change) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()

		ev := change.Event
		if err := pub.PublishRecordEvent(ctx, &ev); err != nil {
			slog.Warn("publish record event failed",
				"type", ev.Type,
				"record_id", ev.Record.ID,
				"error", err,
			)
		}
	}
}
