// Package provider implements external rate providers for fetching currency exchange rates.
package provider

import (
	"context"
)

// RatesProvider defines an interface for fetching the full rate table for a
// base currency from an external source.
type RatesProvider interface {
	FetchRates(ctx context.Context, base string) (map[string]float64, error)
}
