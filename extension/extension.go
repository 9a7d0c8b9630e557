// Package extension mounts the WrapNZap HTTP API into a host server.
//
// The API can sit at the root of its own server or under a prefix on a mux
// the host already owns:
//
//	ext := extension.New(extension.WithPrefix("/zap"))
//	ext.Register(mux, zapper, ledger, api.WithFaucet(true))
package extension

import (
	"net/http"
	"strings"

	"github.com/xraph/wrapnzap"
	"github.com/xraph/wrapnzap/api"
	"github.com/xraph/wrapnzap/ledger"
)

// Extension mounts the API under a URL prefix.
type Extension struct {
	opts Options
}

// Options configures the extension.
type Options struct {
	// Prefix is the URL prefix for the API routes. Empty mounts at "/".
	Prefix string
}

// Option configures the extension.
type Option func(*Options)

// WithPrefix sets the URL prefix for the API routes.
func WithPrefix(prefix string) Option {
	return func(o *Options) { o.Prefix = prefix }
}

// New creates an extension.
func New(opts ...Option) *Extension {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	o.Prefix = strings.TrimRight(o.Prefix, "/")
	if o.Prefix != "" && !strings.HasPrefix(o.Prefix, "/") {
		o.Prefix = "/" + o.Prefix
	}
	return &Extension{opts: o}
}

// Prefix returns the normalized URL prefix, "" for the root.
func (ext *Extension) Prefix() string { return ext.opts.Prefix }

// Handler builds the API handler with the prefix stripped from incoming
// paths.
func (ext *Extension) Handler(z *wrapnzap.Zapper, l ledger.Store, opts ...api.Option) http.Handler {
	h := api.NewHandler(z, l, opts...)
	if ext.opts.Prefix == "" {
		return h
	}
	return http.StripPrefix(ext.opts.Prefix, h)
}

// Register mounts the API on mux under the prefix.
func (ext *Extension) Register(mux *http.ServeMux, z *wrapnzap.Zapper, l ledger.Store, opts ...api.Option) {
	mux.Handle(ext.opts.Prefix+"/", ext.Handler(z, l, opts...))
}
