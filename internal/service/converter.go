// Package service implements the core business logic for currency conversion.
package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"convertsvc/internal/config"
	"convertsvc/internal/provider"
	"convertsvc/internal/ratestore"
	"convertsvc/internal/repository"
)

// ConverterInterface defines the operations available for currency conversion.
type ConverterInterface interface {
	Convert(ctx context.Context, amount float64, from, to string) (*ConversionResult, error)
	RefreshBase(ctx context.Context, base string) error
	RecentConversions(ctx context.Context, limit int) ([]repository.Conversion, error)
}

// Converter orchestrates the cache-or-fetch decision and the rate arithmetic.
type Converter struct {
	store    ratestore.Store
	provider provider.RatesProvider
	audit    repository.ConversionRepository
	log      *zap.SugaredLogger
	ttl      time.Duration
	now      func() time.Time
}

// NewConverter creates a new Converter. audit may be nil when the conversion
// audit log is disabled.
func NewConverter(store ratestore.Store, prov provider.RatesProvider, audit repository.ConversionRepository, logger *zap.SugaredLogger, cacheCfg config.CacheConfig) *Converter {
	return &Converter{
		store:    store,
		provider: prov,
		audit:    audit,
		log:      logger,
		ttl:      time.Duration(cacheCfg.TTLMs) * time.Millisecond,
		now:      time.Now,
	}
}

// Convert converts amount from one currency to another using the cached rate
// table for the base currency, fetching a new table from the provider when the
// cached one is stale or missing. A fetch failure fails the whole request;
// a stale table is never used as a fallback.
func (s *Converter) Convert(ctx context.Context, amount float64, from, to string) (*ConversionResult, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	now := s.now()

	table, cached, err := s.freshTable(ctx, from, now)
	if err != nil {
		s.recordAudit(ctx, &repository.Conversion{
			Base:        from,
			Target:      to,
			Amount:      amount,
			Status:      repository.StatusProviderUnavailable,
			RequestedAt: now,
		})
		return nil, err
	}

	rate, ok := table.Rate(to)
	if !ok {
		s.recordAudit(ctx, &repository.Conversion{
			Base:        from,
			Target:      to,
			Amount:      amount,
			Cached:      cached,
			Status:      repository.StatusUnknownCurrency,
			RequestedAt: now,
		})
		return nil, &UnknownCurrencyError{Code: to, Base: from}
	}

	result := &ConversionResult{
		From:            from,
		To:              to,
		Amount:          amount,
		Rate:            rate,
		ConvertedAmount: amount * rate,
		Cached:          cached,
	}

	s.recordAudit(ctx, &repository.Conversion{
		Base:            from,
		Target:          to,
		Amount:          amount,
		Rate:            &result.Rate,
		ConvertedAmount: &result.ConvertedAmount,
		Cached:          cached,
		Status:          repository.StatusSuccess,
		RequestedAt:     now,
	})
	return result, nil
}

// freshTable returns a usable table for base and whether it came from the
// cache. On a stale or missing entry it performs a single provider fetch and
// installs the result; concurrent refreshes for the same base are not
// deduplicated, the last writer wins.
func (s *Converter) freshTable(ctx context.Context, base string, now time.Time) (*ratestore.Table, bool, error) {
	if s.store.IsFresh(ctx, base, now, s.ttl) {
		if t, ok := s.store.Get(ctx, base); ok {
			return t, true, nil
		}
	}

	rates, err := s.provider.FetchRates(ctx, base)
	if err != nil {
		s.log.Errorw("Provider fetch failed", "base", base, "error", err)
		return nil, false, ErrProviderUnavailable
	}

	table := ratestore.NewTable(base, rates, now)
	s.store.Put(ctx, base, table)
	s.log.Infow("Rate table refreshed", "base", base, "rates", len(rates))
	return table, false, nil
}

// RefreshBase force-fetches a new rate table for base and installs it,
// bypassing the freshness check (used by the background refresh worker).
func (s *Converter) RefreshBase(ctx context.Context, base string) error {
	base = strings.ToUpper(strings.TrimSpace(base))

	rates, err := s.provider.FetchRates(ctx, base)
	if err != nil {
		return err
	}

	s.store.Put(ctx, base, ratestore.NewTable(base, rates, s.now()))
	return nil
}

// RecentConversions returns the most recent audit records, newest first.
func (s *Converter) RecentConversions(ctx context.Context, limit int) ([]repository.Conversion, error) {
	if s.audit == nil {
		return nil, ErrAuditDisabled
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	return s.audit.ListRecent(ctx, limit)
}

// recordAudit writes one audit record, best-effort. Audit failures are logged
// and never fail the conversion.
func (s *Converter) recordAudit(ctx context.Context, c *repository.Conversion) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, c); err != nil {
		s.log.Warnw("Failed to record conversion audit entry",
			"base", c.Base, "target", c.Target, "status", c.Status, "error", err)
	}
}
