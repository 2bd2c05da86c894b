// Package storage selects and connects the blob store named by configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/samirrijal/phonemap/internal/adapters/filestore"
	"github.com/samirrijal/phonemap/internal/adapters/memory"
	"github.com/samirrijal/phonemap/internal/adapters/postgres"
	s3adapter "github.com/samirrijal/phonemap/internal/adapters/s3"
	"github.com/samirrijal/phonemap/internal/adapters/valkey"
	"github.com/samirrijal/phonemap/internal/core/ports"
	"github.com/samirrijal/phonemap/internal/pkg/config"
)

// Open connects the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (ports.BlobStore, error) {
	switch cfg.Driver {
	case "memory":
		return memory.New(), nil
	case "file":
		s, err := filestore.New(cfg.File.Dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "valkey":
		s, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			return nil, err
		}
		return postgres.NewKVStore(db), nil
	case "s3":
		s, err := s3adapter.New(ctx, s3adapter.Options{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Prefix:    cfg.S3.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
