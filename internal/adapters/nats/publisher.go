package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/phonemap/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the record stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, js, err := dial(url)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, js: js}, nil
}

// PublishRecordEvent publishes to phonemap.record.<type>. Redelivered
// publishes of the same event are dropped by the stream.
func (p *Publisher) PublishRecordEvent(ctx context.Context, event *domain.RecordEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(subjectFor(event.Type), data, nats.Context(ctx), nats.MsgId(msgID(event)))
	return err
}

// Ping reports whether the connection is up.
func (p *Publisher) Ping(ctx context.Context) error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("nats: %s", p.conn.Status())
	}
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
