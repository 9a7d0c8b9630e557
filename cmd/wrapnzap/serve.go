package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xraph/wrapnzap"
	"github.com/xraph/wrapnzap/api"
	"github.com/xraph/wrapnzap/extension"
	"github.com/xraph/wrapnzap/ledger"
	"github.com/xraph/wrapnzap/observability"
	"github.com/xraph/wrapnzap/store"
	"github.com/xraph/wrapnzap/wrapper/weth"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP relay",
		Long: `Start the WrapNZap relay.

Every payment posted to /pay is wrapped and forwarded to the recipient in a
single ledger transaction. POST /poke flushes whatever balance the zapper
account holds.

Examples:
  wrapnzap serve --address 0xCf7E... --recipient 0x7099... --wrapper 0x5FbD...
  wrapnzap serve --store sqlite --sqlite-path /var/lib/wrapnzap.db
  wrapnzap serve --store redis --redis-addr localhost:6379 --log-format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configFile, _ := cmd.Flags().GetString("config")
			cfg, err := loadConfig(v, configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}

	bindServeFlags(cmd, v)
	return cmd
}

func serve(parent context.Context, cfg Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := observability.SetupLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	zcfg, err := cfg.zapperConfig()
	if err != nil {
		return err
	}

	l, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	z, err := wrapnzap.New(zcfg,
		wrapnzap.WithLedger(l),
		wrapnzap.WithWrapper(weth.New(zcfg.Wrapper, ledger.Asset(cfg.Token))),
		wrapnzap.WithLogger(logger),
		wrapnzap.WithMetrics(observability.NewMetrics(reg)),
	)
	if err != nil {
		return fmt.Errorf("create zapper: %w", err)
	}

	mux := http.NewServeMux()
	if cfg.Metrics {
		mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	ext := extension.New(extension.WithPrefix(cfg.Prefix))
	ext.Register(mux, z, l,
		api.WithLogger(logger),
		api.WithPokeRateLimit(cfg.PokeRate),
		api.WithFaucet(cfg.Faucet),
	)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("wrapnzap listening",
			"addr", cfg.Listen,
			"prefix", ext.Prefix(),
			"store", cfg.Store.Driver,
			"zapper", zcfg.Address.Hex(),
			"recipient", zcfg.Recipient.Hex(),
			"wrapper", zcfg.Wrapper.Hex(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
