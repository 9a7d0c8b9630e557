// Package redis provides a Redis-backed ledger.Store on Grove KV.
//
// Balances are stored as decimal strings. Update runs its callback under
// WATCH on a ledger-wide version key and flushes the staged journal in a
// single MULTI/EXEC, so a commit is all-or-nothing. Writers that lose the
// race back off and retry, which lets several servers share one ledger.
package redis

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"math/rand/v2"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xraph/grove/kv"
	"github.com/xraph/grove/kv/drivers/redisdriver"

	"github.com/xraph/wrapnzap/ledger"
)

// compile-time interface check
var _ ledger.Store = (*Store)(nil)

// Retry defaults for Update. Between attempts Update sleeps a random
// duration in [0, min(DefaultMaxBackoff, DefaultBaseBackoff<<attempt)).
const (
	DefaultMaxRetries  = 32
	DefaultBaseBackoff = time.Millisecond
	DefaultMaxBackoff  = 64 * time.Millisecond
)

// Store implements ledger.Store on Redis via Grove KV.
type Store struct {
	kv         *kv.Store
	rdb        goredis.UniversalClient
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithMaxRetries overrides DefaultMaxRetries.
func WithMaxRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithBackoff overrides the retry delay bounds.
func WithBackoff(base, ceiling time.Duration) Option {
	return func(s *Store) {
		if base > 0 && ceiling >= base {
			s.baseDelay = base
			s.maxDelay = ceiling
		}
	}
}

// Dial connects a Grove KV store to the Redis server at url
// (redis://host:port/db).
func Dial(ctx context.Context, url string) (*kv.Store, error) {
	drv := redisdriver.New()
	if err := drv.Open(ctx, url); err != nil {
		return nil, fmt.Errorf("wrapnzap/redis: open %s: %w", url, err)
	}
	store, err := kv.Open(drv)
	if err != nil {
		return nil, fmt.Errorf("wrapnzap/redis: kv: %w", err)
	}
	return store, nil
}

// New creates a Redis ledger backed by Grove KV. Transactions run on the
// underlying go-redis client.
func New(store *kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:         store,
		rdb:        redisdriver.UnwrapClient(store),
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseBackoff,
		maxDelay:   DefaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

// Close closes the KV store.
func (s *Store) Close() error {
	return s.kv.Close()
}

// Balance returns the committed balance.
func (s *Store) Balance(ctx context.Context, asset ledger.Asset, addr common.Address) (*big.Int, error) {
	v, err := readBalance(ctx, s.rdb, ledger.Key{Asset: asset, Address: addr})
	if err != nil {
		return nil, fmt.Errorf("wrapnzap/redis: balance: %w", err)
	}
	return v, nil
}

// Update implements ledger.Store. fn may run more than once when another
// writer commits first; lost races are retried with jittered exponential
// backoff until maxRetries attempts or ctx ends.
func (s *Store) Update(ctx context.Context, fn ledger.UpdateFunc) error {
	for attempt := range s.maxRetries {
		if attempt > 0 {
			if err := s.sleep(ctx, attempt); err != nil {
				return err
			}
		}

		err := s.rdb.Watch(ctx, func(rtx *goredis.Tx) error {
			return s.commit(ctx, rtx, fn)
		}, versionKey)
		if !errors.Is(err, goredis.TxFailedErr) {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return ledger.ErrConflict
}

// commit runs fn against a journal reading through rtx and flushes the
// dirty balances in one MULTI/EXEC.
func (s *Store) commit(ctx context.Context, rtx *goredis.Tx, fn ledger.UpdateFunc) error {
	j := ledger.NewJournal(func(ctx context.Context, key ledger.Key) (*big.Int, error) {
		return readBalance(ctx, rtx, key)
	})
	if err := fn(ctx, j); err != nil {
		return err
	}

	dirty := j.Dirty()
	if len(dirty) == 0 {
		return nil
	}

	_, err := rtx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, e := range dirty {
			if e.Amount.Sign() == 0 {
				pipe.Del(ctx, balanceKey(e.Key))
				continue
			}
			pipe.Set(ctx, balanceKey(e.Key), e.Amount.String(), 0)
		}
		pipe.Incr(ctx, versionKey)
		return nil
	})
	return err
}

// sleep waits out the backoff before retry attempt n, or returns ctx.Err().
func (s *Store) sleep(ctx context.Context, n int) error {
	ceiling := s.maxDelay
	if n < 30 {
		if d := s.baseDelay << n; d > 0 && d < ceiling {
			ceiling = d
		}
	}

	t := time.NewTimer(rand.N(ceiling))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// getter is satisfied by both the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
}

func readBalance(ctx context.Context, g getter, key ledger.Key) (*big.Int, error) {
	raw, err := g.Get(ctx, balanceKey(key)).Result()
	if err != nil {
		if isRedisNil(err) {
			return new(big.Int), nil
		}
		return nil, err
	}

	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("wrapnzap/redis: corrupt balance %q at %s", raw, key)
	}
	return v, nil
}

// isRedisNil checks if an error is a Redis nil (key not found).
func isRedisNil(err error) bool {
	return errors.Is(err, goredis.Nil)
}
