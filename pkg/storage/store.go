// Package storage persists session state (the search configuration, the
// signed-in identity) across restarts. Values are msgpack encoded.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned by Get when a key has no value.
var ErrNotFound = errors.New("storage: key not found")

// Store is a small key/value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Supported drivers.
const (
	DriverMemory = "memory"
	DriverBadger = "badger"
	DriverRedis  = "redis"
)

// Options selects and configures a driver.
type Options struct {
	Driver    string
	Path      string
	RedisAddr string
	RedisDB   int
	KeyPrefix string
	Logger    *log.Logger
}

// Open builds the store named by opts.Driver. An empty driver means memory.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Driver) {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverBadger:
		return OpenBadger(opts.Path, opts.Path == "", opts.Logger)
	case DriverRedis:
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisDB, opts.KeyPrefix)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}

// GetValue decodes the value at key into v.
func GetValue(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// PutValue encodes v and stores it at key.
func PutValue(ctx context.Context, s Store, key string, v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Put(ctx, key, data)
}
