// Package redis caches processing records in front of the durable store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/kmrl/documind/internal/core/domain"
	"github.com/kmrl/documind/internal/core/ports"
)

const keyPrefix = "documind:processing:"

var errMiss = errors.New("cache miss")

// KV is the subset of Redis commands the cache needs.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type clientKV struct {
	client *goredis.Client
}

func (c clientKV) Get(ctx context.Context, key string) (string, error) {
	v, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", errMiss
	}
	return v, err
}

func (c clientKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c clientKV) Del(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// NewClient connects and pings the server.
func NewClient(ctx context.Context, addr string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// CachedStore is a read-through cache. Writes go to the durable store first; cache failures are logged
// and never fail the call.
type CachedStore struct {
	next   ports.ProcessingStore
	kv     KV
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedStore(next ports.ProcessingStore, client *goredis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	return newCachedStore(next, clientKV{client: client}, ttl, logger)
}

func newCachedStore(next ports.ProcessingStore, kv KV, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{next: next, kv: kv, ttl: ttl, logger: logger.With("component", "redis-cache")}
}

func (s *CachedStore) Save(ctx context.Context, rec *domain.ProcessingRecord) error {
	if err := s.next.Save(ctx, rec); err != nil {
		return err
	}
	s.put(ctx, rec)
	return nil
}

func (s *CachedStore) GetByID(ctx context.Context, id string) (*domain.ProcessingRecord, error) {
	raw, err := s.kv.Get(ctx, keyPrefix+id)
	switch {
	case err == nil:
		var rec domain.ProcessingRecord
		if err := json.Unmarshal([]byte(raw), &rec); err == nil {
			return &rec, nil
		}
		s.logger.Warn("cache_entry_corrupt", "processing_id", id)
	case !errors.Is(err, errMiss):
		s.logger.Warn("cache_get_failed", "processing_id", id, "error", err)
	}

	rec, err := s.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.put(ctx, rec)
	return rec, nil
}

// UpdateClassification drops the cached entry; the next read refills it.
func (s *CachedStore) UpdateClassification(
	ctx context.Context,
	id string,
	status domain.ClassificationStatus,
	cls *domain.ClassificationResult,
	errMessage string,
) error {
	if err := s.next.UpdateClassification(ctx, id, status, cls, errMessage); err != nil {
		return err
	}
	if err := s.kv.Del(ctx, keyPrefix+id); err != nil {
		s.logger.Warn("cache_invalidate_failed", "processing_id", id, "error", err)
	}
	return nil
}

func (s *CachedStore) put(ctx context.Context, rec *domain.ProcessingRecord) {
	raw, err := json.Marshal(rec)
	if err != nil {
		s.logger.Warn("cache_marshal_failed", "processing_id", rec.ID, "error", err)
		return
	}
	if err := s.kv.Set(ctx, keyPrefix+rec.ID, raw, s.ttl); err != nil {
		s.logger.Warn("cache_set_failed", "processing_id", rec.ID, "error", err)
	}
}
