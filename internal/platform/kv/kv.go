// Package kv is the key-value storage layer. Values are opaque byte slices
// (JSON documents in practice) addressed by string keys such as
// "webhook:{id}" or "appwallet:stats".
package kv

import (
	"context"
	"fmt"
	"time"

	"passrelay/internal/pkg/errors"
	"passrelay/internal/platform/config"
	"passrelay/internal/platform/metrics"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.ErrNotFound

// Store is a get/put/delete mapping keyed by string. Implementations offer no
// compare-and-swap; concurrent writers to one key are last-writer-wins.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.KVConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return OpenSQLite(ctx, cfg.SQLite)
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		return OpenRedis(ctx, cfg.Redis)
	case "postgres":
		return OpenPostgres(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown kv driver %q", cfg.Driver)
	}
}

// Instrumented wraps a Store and reports every operation to rec.
type Instrumented struct {
	Store
	rec metrics.Recorder
}

func NewInstrumented(store Store, rec metrics.Recorder) *Instrumented {
	return &Instrumented{Store: store, rec: rec}
}

func (s *Instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	value, err := s.Store.Get(ctx, key)
	// a miss is a normal answer, not a storage failure
	reported := err
	if errors.Is(err, ErrNotFound) {
		reported = nil
	}
	s.rec.RecordStorageOperation("get", time.Since(start), reported)
	return value, err
}

func (s *Instrumented) Put(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := s.Store.Put(ctx, key, value)
	s.rec.RecordStorageOperation("put", time.Since(start), err)
	return err
}

func (s *Instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.Store.Delete(ctx, key)
	s.rec.RecordStorageOperation("delete", time.Since(start), err)
	return err
}
