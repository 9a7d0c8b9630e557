// Package store opens the ledger backend named in configuration.
//
// Each backend lives in its own subpackage (memory, redis, sqlite) and
// implements ledger.Store; Open is the single place that maps a driver name
// onto one of them.
package store

import (
	"context"
	"fmt"

	"github.com/xraph/wrapnzap/ledger"
	"github.com/xraph/wrapnzap/store/memory"
	"github.com/xraph/wrapnzap/store/redis"
	"github.com/xraph/wrapnzap/store/sqlite"
)

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// Config selects and configures a ledger backend.
type Config struct {
	Driver     string `json:"driver" yaml:"driver" mapstructure:"driver"`
	RedisAddr  string `json:"redis_addr" yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisDB    int    `json:"redis_db" yaml:"redis_db" mapstructure:"redis_db"`
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// Open constructs the configured backend and checks it is reachable.
func Open(ctx context.Context, cfg Config) (ledger.Store, error) {
	var (
		s   ledger.Store
		err error
	)

	switch cfg.Driver {
	case "", DriverMemory:
		s = memory.New()
	case DriverRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("store: redis_addr is required for driver %q", cfg.Driver)
		}
		kvs, err := redis.Dial(ctx, fmt.Sprintf("redis://%s/%d", cfg.RedisAddr, cfg.RedisDB))
		if err != nil {
			return nil, err
		}
		s = redis.New(kvs)
	case DriverSQLite:
		s, err = sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}

	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("store: ping %s: %w", cfg.Driver, err)
	}
	return s, nil
}
