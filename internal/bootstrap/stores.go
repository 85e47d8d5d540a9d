package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/kmrl/documind/internal/config"
	"github.com/kmrl/documind/internal/core/ports"
	rediscache "github.com/kmrl/documind/internal/infrastructure/cache/redis"
	"github.com/kmrl/documind/internal/infrastructure/repository/memory"
	"github.com/kmrl/documind/internal/infrastructure/repository/postgres"
	"github.com/kmrl/documind/internal/infrastructure/storage/azureblob"
	"github.com/kmrl/documind/internal/infrastructure/storage/localfs"
	"github.com/kmrl/documind/internal/infrastructure/storage/s3"
)

// checkSharedStore rejects a queue over the process-local memory store: the worker runs in another
// process and would never find the records the API publishes.
func checkSharedStore(cfg config.Config) error {
	if !cfg.QueueEnabled {
		return nil
	}
	switch strings.ToLower(cfg.StoreBackend) {
	case "", "memory":
		return fmt.Errorf("QUEUE_ENABLED needs a shared STORE_BACKEND such as postgres, got %q", cfg.StoreBackend)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (ports.ProcessingStore, error) {
	cfg := a.Config
	var store ports.ProcessingStore

	switch strings.ToLower(cfg.StoreBackend) {
	case "", "memory":
		store = memory.NewStore()
	case "postgres":
		if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		store = postgres.NewProcessingRepository(db)
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	if cfg.RedisAddr == "" {
		return store, nil
	}
	client, err := rediscache.NewClient(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	return rediscache.NewCachedStore(store, client, cfg.RedisTTL, a.Logger), nil
}

// openArchive returns nil when uploads are not archived.
func (a *App) openArchive(ctx context.Context) (ports.ObjectStorage, error) {
	cfg := a.Config
	if !cfg.ArchiveUploads {
		return nil, nil
	}
	switch strings.ToLower(cfg.StorageBackend) {
	case "", "local":
		s, err := localfs.New(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("init local storage: %w", err)
		}
		return s, nil
	case "s3":
		s, err := s3.New(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Prefix)
		if err != nil {
			return nil, fmt.Errorf("init s3 storage: %w", err)
		}
		return s, nil
	case "azure":
		s, err := azureblob.New(cfg.AzureConnectionString, cfg.AzureContainer, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("init azure storage: %w", err)
		}
		if err := s.EnsureContainer(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
}
