// Package redis provides a key/value medium on a Redis server.
//
// Durability follows the server's persistence settings; run it with
// appendfsync always when a returned Set must survive a crash.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	goredis "github.com/go-redis/redis/v8"

	"github.com/listenupapp/sortir/internal/store"
)

// Store is a Redis-backed store.Medium.
type Store struct {
	client *goredis.Client
	logger *slog.Logger
}

var _ store.Medium = (*Store)(nil)

// Open connects to addr, either host:port or a redis:// URL, and pings it.
func Open(ctx context.Context, addr string, logger *slog.Logger) (*Store, error) {
	opts := &goredis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := goredis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("could not connect to redis (%s): %w", opts.Addr, err)
	}

	if logger != nil {
		logger.Info("Redis connection established", "addr", opts.Addr, "db", opts.DB)
	}

	return &Store{client: client, logger: logger}, nil
}

// Close closes the client connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
