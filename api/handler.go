// Package api exposes a Zapper over HTTP.
//
// Routes:
//
//	POST /pay                  pay the Zapper; the payment is wrapped and forwarded
//	POST /poke                 flush any balance the Zapper holds
//	GET  /config               zapper, recipient, wrapper, and token
//	GET  /balance              native balance held by the Zapper
//	GET  /balances/{address}   native and token balance of any account
//	POST /fund                 credit native currency without triggering (faucet mode only)
package api

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/xraph/wrapnzap"
	"github.com/xraph/wrapnzap/ledger"
	"github.com/xraph/wrapnzap/ratelimit"
)

// Handler is the root HTTP handler.
type Handler struct {
	zapper   *wrapnzap.Zapper
	ledger   ledger.Store
	limiter  *ratelimit.Limiter
	pokeRate int
	faucet   bool
	logger   *slog.Logger
	mux      *http.ServeMux
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithPokeRateLimit limits POST /poke to n requests per second per client
// IP. 0 disables the limit.
func WithPokeRateLimit(n int) Option {
	return func(h *Handler) {
		h.pokeRate = n
	}
}

// WithFaucet enables POST /fund.
func WithFaucet(enabled bool) Option {
	return func(h *Handler) {
		h.faucet = enabled
	}
}

// NewHandler creates a handler serving z, reading balances from l.
func NewHandler(z *wrapnzap.Zapper, l ledger.Store, opts ...Option) *Handler {
	h := &Handler{
		zapper:  z,
		ledger:  l,
		limiter: ratelimit.New(),
		logger:  slog.Default(),
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	// Triggers
	h.mux.HandleFunc("POST /pay", h.pay)
	h.mux.HandleFunc("POST /poke", h.poke)

	// Reads
	h.mux.HandleFunc("GET /config", h.getConfig)
	h.mux.HandleFunc("GET /balance", h.getBalance)
	h.mux.HandleFunc("GET /balances/{address}", h.getAccount)

	if h.faucet {
		h.mux.HandleFunc("POST /fund", h.fund)
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.withMiddleware(h.mux).ServeHTTP(w, r)
}

func (h *Handler) withMiddleware(next http.Handler) http.Handler {
	return h.recoverPanics(h.accessLog(next))
}

// accessLog logs one line per request, keyed by the matched route pattern.
// Client errors log at warn and server errors at error.
func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		level := slog.LevelInfo
		switch {
		case sw.status >= http.StatusInternalServerError:
			level = slog.LevelError
		case sw.status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		h.logger.Log(r.Context(), level, "wrapnzap request",
			"route", route,
			"client", clientKey(r),
			"status", sw.status,
			"elapsed", time.Since(start),
		)
	})
}

func (h *Handler) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.ErrorContext(r.Context(), "handler panic",
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// statusWriter records the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// maxBodyBytes caps request bodies on /pay and /fund.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a single JSON object of at most maxBodyBytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()
	return json.NewDecoder(body).Decode(v)
}

// clientKey identifies the caller for rate limiting.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
