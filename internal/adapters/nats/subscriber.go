package natsadapter

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/phonemap/internal/core/domain"
)

// Subscriber consumes record events from JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber connects to NATS for consuming.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, js, err := dial(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeRecordEvents delivers events published from now on to handler.
// Events the handler rejects are redelivered up to three times; undecodable
// ones are terminated.
func (s *Subscriber) SubscribeRecordEvents(ctx context.Context, handler func(ctx context.Context, event *domain.RecordEvent) error) error {
	sub, err := s.js.Subscribe(SubjectPrefix+">", func(msg *nats.Msg) {
		ev, err := decodeEvent(msg.Data)
		if err != nil {
			slog.Warn("dropping malformed record event", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, ev); err != nil {
			slog.Debug("record event rejected, will redeliver", "subject", msg.Subject, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
