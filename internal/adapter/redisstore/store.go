// Package redisstore keeps per-office tables in Redis so several hosts can
// share finished offices. Values are the same CSV the file store writes.
package redisstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/couchcryptid/afd-term-etl/internal/adapter/csvstore"
	"github.com/couchcryptid/afd-term-etl/internal/domain"
)

// KeyPrefix namespaces office table keys.
const KeyPrefix = "afd:office:"

// commands is the subset of the go-redis client the store needs.
type commands interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Store implements pipeline.TableStore over Redis.
type Store struct {
	rdb   commands
	close func() error
	vocab domain.Vocabulary
}

// Open connects to Redis and verifies the connection with a PING.
func Open(ctx context.Context, addr, password string, db int, vocab domain.Vocabulary) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &Store{rdb: rdb, close: rdb.Close, vocab: vocab}, nil
}

// Key returns the Redis key of an office table.
func Key(office string) string {
	return KeyPrefix + office
}

// Has reports whether a table is stored for office.
func (s *Store) Has(ctx context.Context, office string) (bool, error) {
	n, err := s.rdb.Exists(ctx, Key(office)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", office, err)
	}
	return n > 0, nil
}

// Get loads the table stored for office.
func (s *Store) Get(ctx context.Context, office string) (domain.OfficeTable, error) {
	data, err := s.rdb.Get(ctx, Key(office)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis get %s: no table stored", office)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", office, err)
	}
	table, err := csvstore.ReadOfficeTable(bytes.NewReader(data), s.vocab)
	if err != nil {
		return nil, fmt.Errorf("decode %s table: %w", office, err)
	}
	return table, nil
}

// Put stores table for office without expiry.
func (s *Store) Put(ctx context.Context, office string, table domain.OfficeTable) error {
	var buf bytes.Buffer
	if err := csvstore.WriteOfficeTable(&buf, s.vocab, table); err != nil {
		return fmt.Errorf("encode %s table: %w", office, err)
	}
	if err := s.rdb.Set(ctx, Key(office), buf.Bytes(), 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", office, err)
	}
	return nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
