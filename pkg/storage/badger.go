package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/bastiangx/educate/internal/logger"
	"github.com/bastiangx/educate/internal/utils"
	"github.com/charmbracelet/log"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// BadgerStore is an embedded on-disk store.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = (*BadgerStore)(nil)

// badgerLogger routes badger's own logging through charm log.
type badgerLogger struct {
	logger *log.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (b *badgerLogger) Errorf(msg string, args ...any)   { b.logger.Errorf(msg, args...) }
func (b *badgerLogger) Warningf(msg string, args ...any) { b.logger.Warnf(msg, args...) }
func (b *badgerLogger) Infof(msg string, args ...any)    { b.logger.Debugf(msg, args...) }
func (b *badgerLogger) Debugf(msg string, args ...any)   { b.logger.Debugf(msg, args...) }

// OpenBadger opens a database in dir, creating it if needed. inMemory ignores dir.
func OpenBadger(dir string, inMemory bool, l *log.Logger) (*BadgerStore, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := utils.EnsureDir(dir); err != nil {
			return nil, fmt.Errorf("badger dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLogger{logger: logger.OrDefault(l, "storage")}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return out, err
}

func (b *BadgerStore) Put(_ context.Context, key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (b *BadgerStore) Delete(_ context.Context, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}
