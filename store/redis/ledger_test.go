package redis_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/wrapnzap"
	"github.com/xraph/wrapnzap/ledger"
	"github.com/xraph/wrapnzap/store/redis"
	"github.com/xraph/wrapnzap/wrapper/weth"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func ctx() context.Context { return context.Background() }

// setup starts an in-process Redis and returns a ledger on it plus a raw
// client for writing behind the ledger's back.
func setup(t *testing.T, opts ...redis.Option) (*redis.Store, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)

	kvs, err := redis.Dial(ctx(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatal(err)
	}
	s := redis.New(kvs, opts...)
	t.Cleanup(func() { _ = s.Close() })

	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return s, raw
}

func balance(t *testing.T, s *redis.Store, asset ledger.Asset, addr common.Address) int64 {
	t.Helper()
	v, err := s.Balance(ctx(), asset, addr)
	if err != nil {
		t.Fatal(err)
	}
	return v.Int64()
}

func transfer(amount int64) ledger.UpdateFunc {
	return func(ctx context.Context, tx ledger.Tx) error {
		return ledger.Transfer(ctx, tx, ledger.Native, alice, bob, big.NewInt(amount))
	}
}

func TestFundAndTransfer(t *testing.T) {
	s, _ := setup(t)

	if err := ledger.Fund(ctx(), s, alice, big.NewInt(500)); err != nil {
		t.Fatal(err)
	}
	if err := s.Update(ctx(), transfer(200)); err != nil {
		t.Fatal(err)
	}

	if got := balance(t, s, ledger.Native, alice); got != 300 {
		t.Fatalf("alice: expected 300, got %d", got)
	}
	if got := balance(t, s, ledger.Native, bob); got != 200 {
		t.Fatalf("bob: expected 200, got %d", got)
	}
}

func TestRollbackOnError(t *testing.T) {
	s, _ := setup(t)
	if err := ledger.Fund(ctx(), s, alice, big.NewInt(500)); err != nil {
		t.Fatal(err)
	}

	abort := errors.New("abort")
	err := s.Update(ctx(), func(ctx context.Context, tx ledger.Tx) error {
		if err := transfer(200)(ctx, tx); err != nil {
			return err
		}
		return abort
	})
	if !errors.Is(err, abort) {
		t.Fatalf("expected abort, got %v", err)
	}

	if got := balance(t, s, ledger.Native, alice); got != 500 {
		t.Fatalf("alice: expected 500, got %d", got)
	}
	if got := balance(t, s, ledger.Native, bob); got != 0 {
		t.Fatalf("bob: expected 0, got %d", got)
	}
}

func TestInsufficientFundsCommitsNothing(t *testing.T) {
	s, _ := setup(t)
	if err := ledger.Fund(ctx(), s, alice, big.NewInt(10)); err != nil {
		t.Fatal(err)
	}

	if err := s.Update(ctx(), transfer(11)); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := balance(t, s, ledger.Native, alice); got != 10 {
		t.Fatalf("alice: expected 10, got %d", got)
	}
}

func TestRetriesAfterLostRace(t *testing.T) {
	s, raw := setup(t)
	if err := ledger.Fund(ctx(), s, alice, big.NewInt(100)); err != nil {
		t.Fatal(err)
	}

	calls := 0
	err := s.Update(ctx(), func(ctx context.Context, tx ledger.Tx) error {
		calls++
		if calls == 1 {
			// Another writer commits while this attempt is in flight.
			if err := raw.Incr(ctx, "wrapnzap:ledger:version").Err(); err != nil {
				return err
			}
		}
		return transfer(40)(ctx, tx)
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
	if got := balance(t, s, ledger.Native, bob); got != 40 {
		t.Fatalf("bob: expected 40, got %d", got)
	}
}

func TestConflictAfterMaxRetries(t *testing.T) {
	s, raw := setup(t, redis.WithMaxRetries(3), redis.WithBackoff(time.Microsecond, time.Millisecond))
	if err := ledger.Fund(ctx(), s, alice, big.NewInt(100)); err != nil {
		t.Fatal(err)
	}

	calls := 0
	err := s.Update(ctx(), func(ctx context.Context, tx ledger.Tx) error {
		calls++
		if err := raw.Incr(ctx, "wrapnzap:ledger:version").Err(); err != nil {
			return err
		}
		return transfer(40)(ctx, tx)
	})
	if !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if got := balance(t, s, ledger.Native, alice); got != 100 {
		t.Fatalf("alice: expected 100, got %d", got)
	}
}

func TestRetryStopsWhenContextEnds(t *testing.T) {
	s, raw := setup(t, redis.WithBackoff(time.Second, time.Second))
	if err := ledger.Fund(ctx(), s, alice, big.NewInt(100)); err != nil {
		t.Fatal(err)
	}

	c, cancel := context.WithCancel(ctx())
	defer cancel()

	calls := 0
	err := s.Update(c, func(ctx context.Context, tx ledger.Tx) error {
		calls++
		if err := raw.Incr(context.Background(), "wrapnzap:ledger:version").Err(); err != nil {
			return err
		}
		cancel()
		return transfer(40)(ctx, tx)
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt before cancellation, got %d", calls)
	}
	if got := balance(t, s, ledger.Native, alice); got != 100 {
		t.Fatalf("alice: expected 100, got %d", got)
	}
}

func TestConcurrentTransfersConserveBalance(t *testing.T) {
	s, _ := setup(t)
	if err := ledger.Fund(ctx(), s, alice, big.NewInt(1000)); err != nil {
		t.Fatal(err)
	}

	const workers = 50
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Update(ctx(), transfer(10))
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("transfer failed: %v", err)
		}
	}
	if got := balance(t, s, ledger.Native, alice); got != 500 {
		t.Fatalf("alice: expected 500, got %d", got)
	}
	if got := balance(t, s, ledger.Native, bob); got != 500 {
		t.Fatalf("bob: expected 500, got %d", got)
	}
}

func TestZapperOnRedis(t *testing.T) {
	s, _ := setup(t)

	zapperAddr := common.HexToAddress("0xCf7Ed3AccA5a467e9e704C703E8D87F634fB0Fc9")
	zappee := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	wethAddr := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

	z, err := wrapnzap.New(wrapnzap.Config{
		Address:   zapperAddr,
		Recipient: zappee,
		Wrapper:   wethAddr,
	}, wrapnzap.WithLedger(s), wrapnzap.WithWrapper(weth.New(wethAddr, weth.DefaultToken)))
	if err != nil {
		t.Fatal(err)
	}

	if err := ledger.Fund(ctx(), s, alice, big.NewInt(300)); err != nil {
		t.Fatal(err)
	}
	if _, err := z.Receive(ctx(), wrapnzap.Payment{From: alice, Amount: big.NewInt(200)}); err != nil {
		t.Fatal(err)
	}

	if err := ledger.Fund(ctx(), s, zapperAddr, big.NewInt(75)); err != nil {
		t.Fatal(err)
	}
	r, err := z.Poke(ctx())
	if err != nil {
		t.Fatal(err)
	}
	if r.Amount.Int64() != 75 {
		t.Fatalf("poke: expected 75, got %s", r.Amount)
	}

	if _, err := z.Poke(ctx()); !errors.Is(err, wrapnzap.ErrNoBalance) {
		t.Fatalf("expected ErrNoBalance, got %v", err)
	}

	if got := balance(t, s, weth.DefaultToken, zappee); got != 275 {
		t.Fatalf("zappee token: expected 275, got %d", got)
	}
	if got := balance(t, s, ledger.Native, wethAddr); got != 275 {
		t.Fatalf("wrapper native: expected 275, got %d", got)
	}
	if got := balance(t, s, ledger.Native, alice); got != 100 {
		t.Fatalf("alice: expected 100, got %d", got)
	}
}
