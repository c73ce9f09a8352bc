// Package cache provides the ledger balance cache.
//
// Balances are cheap to recompute but read constantly by the clients, so
// they are cached per (user, family) scope and invalidated whenever a
// committed mutation appends an entry for that scope.
package cache

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/EmanAguilera/fiambond/internal/infra/observability"
)

// Cache is a minimal string key/value store.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Balances wraps a Cache with balance-specific keys and encoding.
type Balances struct {
	cache Cache
}

// NewBalances creates a balance cache over the given backend.
func NewBalances(c Cache) *Balances {
	return &Balances{cache: c}
}

// balanceKey builds the cache key for a (user, family) scope. An empty
// family id is the user's personal ledger.
func balanceKey(userID, familyID string) string {
	if familyID == "" {
		return "balance:" + userID + ":personal"
	}
	return "balance:" + userID + ":" + familyID
}

// Get returns the cached balance for a scope, if present.
func (b *Balances) Get(ctx context.Context, userID, familyID string) (decimal.Decimal, bool) {
	raw, ok := b.cache.Get(ctx, balanceKey(userID, familyID))
	if !ok {
		observability.BalanceCacheMisses.Inc()
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		// Unparseable entry: treat as a miss and drop it.
		_ = b.cache.Delete(ctx, balanceKey(userID, familyID))
		observability.BalanceCacheMisses.Inc()
		return decimal.Zero, false
	}
	observability.BalanceCacheHits.Inc()
	return d, true
}

// Set stores the balance for a scope. Failures are ignored; the cache is
// strictly an optimization over the ledger aggregation.
func (b *Balances) Set(ctx context.Context, userID, familyID string, balance decimal.Decimal) {
	_ = b.cache.Set(ctx, balanceKey(userID, familyID), balance.String())
}

// Invalidate drops the cached balance for a scope.
func (b *Balances) Invalidate(ctx context.Context, userID, familyID string) {
	_ = b.cache.Delete(ctx, balanceKey(userID, familyID))
}
