//go:build integration

package integration

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"convertsvc/internal/config"
	"convertsvc/internal/provider"
	"convertsvc/internal/ratestore"
	"convertsvc/internal/repository"
	"convertsvc/internal/service"
)

// fakeProvider serves a fixed rate table and counts upstream fetches.
type fakeProvider struct {
	rates map[string]float64
	err   error
	calls atomic.Int64
}

var _ provider.RatesProvider = (*fakeProvider)(nil)

func (p *fakeProvider) FetchRates(_ context.Context, _ string) (map[string]float64, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return p.rates, nil
}

func newTestConverter(prov provider.RatesProvider) *service.Converter {
	store := ratestore.NewRedisStore(testRDB, zap.NewNop().Sugar())
	audit := repository.NewPostgresConversionRepository(testDB)
	return service.NewConverter(store, prov, audit, zap.NewNop().Sugar(), config.CacheConfig{
		TTLMs:   3_600_000,
		Backend: config.CacheBackendRedis,
	})
}

func TestConvertFlow_RedisCacheAndAudit(t *testing.T) {
	resetTestData(t)
	ctx := testContext(t)

	prov := &fakeProvider{rates: map[string]float64{"EUR": 0.92, "JPY": 150}}
	svc := newTestConverter(prov)

	first, err := svc.Convert(ctx, 100, "USD", "EUR")
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.InDelta(t, 92, first.ConvertedAmount, 1e-9)

	second, err := svc.Convert(ctx, 2, "USD", "JPY")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.InDelta(t, 300, second.ConvertedAmount, 1e-9)

	assert.Equal(t, int64(1), prov.calls.Load())

	// Both requests must land in the audit log, newest first.
	recent, err := svc.RecentConversions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "JPY", recent[0].Target)
	assert.True(t, recent[0].Cached)
	assert.Equal(t, repository.StatusSuccess, recent[0].Status)
	assert.Equal(t, "EUR", recent[1].Target)
	assert.False(t, recent[1].Cached)
}

func TestConvertFlow_UnknownCurrencyAudit(t *testing.T) {
	resetTestData(t)
	ctx := testContext(t)

	prov := &fakeProvider{rates: map[string]float64{"EUR": 0.92}}
	svc := newTestConverter(prov)

	_, err := svc.Convert(ctx, 10, "USD", "XXX")
	var unknownErr *service.UnknownCurrencyError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "XXX", unknownErr.Code)

	recent, err := svc.RecentConversions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, repository.StatusUnknownCurrency, recent[0].Status)
	assert.Nil(t, recent[0].Rate)
}

func TestConvertFlow_ProviderFailureAudit(t *testing.T) {
	resetTestData(t)
	ctx := testContext(t)

	prov := &fakeProvider{err: errors.New("upstream down")}
	svc := newTestConverter(prov)

	_, err := svc.Convert(ctx, 10, "USD", "EUR")
	require.ErrorIs(t, err, service.ErrProviderUnavailable)

	recent, err := svc.RecentConversions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, repository.StatusProviderUnavailable, recent[0].Status)
}

func TestConvertFlow_CacheSurvivesNewServiceInstance(t *testing.T) {
	resetTestData(t)
	ctx := testContext(t)

	prov := &fakeProvider{rates: map[string]float64{"EUR": 0.92}}
	first := newTestConverter(prov)
	_, err := first.Convert(ctx, 1, "USD", "EUR")
	require.NoError(t, err)

	// A second service instance sharing the same Redis must see the cached table.
	second := newTestConverter(prov)
	res, err := second.Convert(ctx, 1, "USD", "EUR")
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, int64(1), prov.calls.Load())
}
