package valkey

import (
	"context"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/samirrijal/phonemap/internal/core/ports"
)

// Store implements ports.BlobStore using Valkey (Redis-compatible).
type Store struct {
	client valkey.Client
	prefix string
}

// New creates a new Valkey-backed store. Keys are namespaced with prefix.
func New(addr, prefix string) (*Store, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Store{client: client, prefix: prefix}, nil
}

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Do(ctx, s.client.B().Get().Key(s.prefix+key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, ports.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Put stores a value without expiry.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	cmd := s.client.Do(ctx,
		s.client.B().Set().Key(s.prefix+key).Value(valkey.BinaryString(value)).Build(),
	)
	return cmd.Error()
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	cmd := s.client.Do(ctx, s.client.B().Del().Key(s.prefix+key).Build())
	return cmd.Error()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

// Close releases the client.
func (s *Store) Close() error {
	s.client.Close()
	return nil
}
