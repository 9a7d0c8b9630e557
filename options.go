package wrapnzap

import (
	"log/slog"
	"sync"

	"github.com/xraph/wrapnzap/ledger"
	"github.com/xraph/wrapnzap/observability"
	"github.com/xraph/wrapnzap/wrapper"
)

// Zapper wraps incoming payments and forwards them to a fixed recipient.
type Zapper struct {
	config  Config
	ledger  ledger.Store
	wrapper wrapper.Service
	logger  *slog.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer

	// mu serializes triggers on this Zapper.
	mu sync.Mutex
}

// Option configures a Zapper instance.
type Option func(*Zapper) error

// New creates a Zapper for cfg with the given options. WithLedger and
// WithWrapper are required.
func New(cfg Config, opts ...Option) (*Zapper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	z := &Zapper{
		config: cfg,
		logger: slog.Default(),
		tracer: observability.NewTracer(),
	}
	for _, opt := range opts {
		if err := opt(z); err != nil {
			return nil, err
		}
	}
	if z.ledger == nil {
		return nil, ErrNoLedger
	}
	if z.wrapper == nil {
		return nil, ErrNoWrapper
	}
	if z.wrapper.Address() != cfg.Wrapper {
		return nil, ErrWrapperMismatch
	}
	return z, nil
}

// WithLedger sets the ledger the Zapper settles against.
func WithLedger(l ledger.Store) Option {
	return func(z *Zapper) error {
		z.ledger = l
		return nil
	}
}

// WithWrapper sets the wrapping service.
func WithWrapper(w wrapper.Service) Option {
	return func(z *Zapper) error {
		z.wrapper = w
		return nil
	}
}

// WithLogger sets the structured logger for the Zapper instance.
func WithLogger(logger *slog.Logger) Option {
	return func(z *Zapper) error {
		z.logger = logger
		return nil
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(z *Zapper) error {
		z.metrics = m
		return nil
	}
}

// WithTracer replaces the tracer built from the global OpenTelemetry provider.
func WithTracer(t *observability.Tracer) Option {
	return func(z *Zapper) error {
		z.tracer = t
		return nil
	}
}
