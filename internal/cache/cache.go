// Package cache keeps AniList responses in Badger with a time to live.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/shapedtime/animeschedule/internal/metrics"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a JSON value cache backed by Badger.
type Cache struct {
	db      *badger.DB
	ttl     time.Duration
	metrics *metrics.Metrics
}

// badgerLogger adapts slog for Badger's logger interface.
type badgerLogger struct {
	log *slog.Logger
}

func (l *badgerLogger) Errorf(f string, v ...interface{}) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (l *badgerLogger) Warningf(f string, v ...interface{}) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (l *badgerLogger) Infof(f string, v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (l *badgerLogger) Debugf(f string, v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

// Open opens the cache in dir. An empty dir keeps the cache in memory.
// m may be nil.
func Open(dir string, ttl time.Duration, m *metrics.Metrics) (*Cache, error) {
	log := slog.With("component", "cache")

	opts := badger.DefaultOptions(dir).
		WithLogger(&badgerLogger{log: log}).
		WithValueLogFileSize(1<<26 - 1)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	if dir != "" {
		err = db.RunValueLogGC(0.5)
		if err != nil && err != badger.ErrNoRewrite {
			db.Close()
			return nil, fmt.Errorf("cache value log gc: %w", err)
		}
	}

	return &Cache{db: db, ttl: ttl, metrics: m}, nil
}

// Get decodes the value stored under key into v.
func (c *Cache) Get(key string, v any) error {
	tx := c.db.NewTransaction(false)
	defer tx.Discard()

	item, err := tx.Get([]byte(key))
	if err == badger.ErrKeyNotFound {
		c.metrics.ObserveCache(false)
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("cache get %s: %w", key, err)
	}

	data, err := item.ValueCopy(nil)
	if err != nil {
		return fmt.Errorf("cache read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cache decode %s: %w", key, err)
	}

	c.metrics.ObserveCache(true)
	return nil
}

// Set stores v under key for the cache TTL.
func (c *Cache) Set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}

	tx := c.db.NewTransaction(true)
	defer tx.Discard()

	e := badger.NewEntry([]byte(key), data)
	if c.ttl > 0 {
		e = e.WithTTL(c.ttl)
	}
	if err := tx.SetEntry(e); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}

	return tx.Commit()
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Cache) Delete(key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Close shuts down the Badger database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// AnimeKey is the cache key of a single anime.
func AnimeKey(id int) string {
	return "/anime/" + strconv.Itoa(id)
}

// SearchKey is the cache key of a title search.
func SearchKey(query string) string {
	return "/search/" + strings.ToLower(strings.TrimSpace(query))
}

// SeasonKey is the cache key of a season listing.
func SeasonKey(season string, year int) string {
	return "/season/" + strings.ToUpper(season) + "/" + strconv.Itoa(year)
}
