package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/phonemap/internal/core/ports"
)

// KVStore implements ports.BlobStore over the kv_store table.
type KVStore struct {
	db *DB
}

func NewKVStore(db *DB) *KVStore {
	return &KVStore{db: db}
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.Pool.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *KVStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, key, value)
	return err
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.Pool.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key)
	return err
}

func (s *KVStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *KVStore) Close() error {
	s.db.Close()
	return nil
}
