// Package redis stores deposits in Redis. Each deposit is a JSON document; sorted sets index
// them by block timestamp per token and by block number.
package redis

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

// Options locate the Redis server.
type Options struct {
	Addr     string
	Username string
	Password string
	DB       int
}

// Store implements deposittrack.DepositStore.
type Store struct {
	conn *redis.Client
}

// New connects and pings the server. The connection is released when the ping fails.
func New(ctx context.Context, opts Options) (*Store, error) {
	conn := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s: %w", opts.Addr, err)
	}

	return &Store{conn: conn}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.conn.Close()
}
