// Package ratestore implements the per-base-currency cache of exchange rate tables.
package ratestore

import (
	"context"
	"time"
)

// Table is an immutable snapshot of exchange rates for one base currency.
// Rates maps target currency codes to multipliers ("1 base = rate target").
// A refresh always produces a whole new Table; Rates is never mutated.
type Table struct {
	Base      string
	Rates     map[string]float64
	FetchedAt time.Time
}

// NewTable builds a Table stamped with the given fetch time.
func NewTable(base string, rates map[string]float64, fetchedAt time.Time) *Table {
	return &Table{
		Base:      base,
		Rates:     rates,
		FetchedAt: fetchedAt,
	}
}

// Rate returns the multiplier for the given target code.
func (t *Table) Rate(code string) (float64, bool) {
	r, ok := t.Rates[code]
	return r, ok
}

// Age returns how long ago the table was fetched.
func (t *Table) Age(now time.Time) time.Duration {
	return now.Sub(t.FetchedAt)
}

// Store caches one Table per base currency. Implementations must be safe for
// concurrent use: a completed Put is visible to subsequent Get/IsFresh calls
// on any goroutine, and Get never observes a partially written table.
type Store interface {
	// Get returns the cached table for base, or false if never stored.
	Get(ctx context.Context, base string) (*Table, bool)
	// IsFresh reports whether a table for base exists and is younger than ttl.
	IsFresh(ctx context.Context, base string, now time.Time, ttl time.Duration) bool
	// Put unconditionally replaces the entry for base.
	Put(ctx context.Context, base string, table *Table)
	// Bases lists the base currencies currently cached.
	Bases(ctx context.Context) []string
}
