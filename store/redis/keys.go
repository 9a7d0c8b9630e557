package redis

import "github.com/xraph/wrapnzap/ledger"

// Key prefixes for balance storage.
const (
	prefixBalance = "wrapnzap:bal:" // + asset + ":" + address
)

// versionKey is bumped by every commit and watched by every update, which
// serializes writers optimistically.
const versionKey = "wrapnzap:ledger:version"

// balanceKey returns the string key holding a balance.
func balanceKey(k ledger.Key) string {
	return prefixBalance + k.String()
}
