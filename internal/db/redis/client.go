// Package redis backs db.Store with a rueidis client.
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/xraysearch/internal/db"
)

var _ db.Store = (*Store)(nil)

const (
	defaultClientName  = "xraysearch"
	defaultDialTimeout = 5 * time.Second

	readyBackoffMin = 50 * time.Millisecond
	readyBackoffMax = time.Second
)

// Config holds connection parameters.
type Config struct {
	Addrs       []string
	Username    string
	Password    string
	DB          int
	ClientName  string
	DialTimeout time.Duration
}

// Store is a Redis-backed db.Store. Client-side caching is off: entries are
// short-lived and invalidated explicitly.
type Store struct {
	client rueidis.Client
}

// NewStore connects to Redis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: at least one address is required")
	}
	name := cfg.ClientName
	if name == "" {
		name = defaultClientName
	}
	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = defaultDialTimeout
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   name,
		Dialer:       net.Dialer{Timeout: dial},
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: connect %v: %w", cfg.Addrs, err)
	}
	return &Store{client: client}, nil
}

// Ping sends PING.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings with exponential backoff until Redis answers or timeout
// passes. The last ping error is reported on timeout.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoff := readyBackoffMin
	for {
		err := s.Ping(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("redis not ready after %s: %w", timeout, err)
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, readyBackoffMax)
	}
}
