package natsadapter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/phonemap/internal/core/domain"
)

const (
	// StreamName is the JetStream stream holding record events.
	StreamName = "PHONEMAP_RECORDS"
	// SubjectPrefix prefixes every record event subject.
	SubjectPrefix = "phonemap.record."

	streamMaxAge = 7 * 24 * time.Hour
)

// RawConn creates a plain NATS connection with reconnects enabled.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("phonemap"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

// dial connects and makes sure the record stream exists.
func dial(url string) (*nats.Conn, nats.JetStreamContext, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := &nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{SubjectPrefix + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    streamMaxAge,
		Storage:   nats.FileStorage,
	}
	if _, err := js.StreamInfo(StreamName); err == nil {
		_, err = js.UpdateStream(cfg)
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("update stream %s: %w", StreamName, err)
		}
	} else if _, err := js.AddStream(cfg); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("add stream %s: %w", StreamName, err)
	}
	return conn, js, nil
}

// subjectFor returns the subject an event of the given type is published on.
func subjectFor(eventType string) string {
	return SubjectPrefix + eventType
}

// msgID identifies an event for JetStream duplicate detection.
func msgID(ev *domain.RecordEvent) string {
	return fmt.Sprintf("%s-%s-%d", ev.Type, ev.Record.ID, ev.Time.UnixNano())
}

func decodeEvent(data []byte) (*domain.RecordEvent, error) {
	var ev domain.RecordEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.Type == "" || ev.Record.ID == "" {
		return nil, fmt.Errorf("record event missing type or record id")
	}
	return &ev, nil
}
