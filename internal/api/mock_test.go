package api

import (
	"context"

	"convertsvc/internal/repository"
	"convertsvc/internal/service"
)

// mockConverter implements service.ConverterInterface for testing.
type mockConverter struct {
	convertFunc           func(ctx context.Context, amount float64, from, to string) (*service.ConversionResult, error)
	recentConversionsFunc func(ctx context.Context, limit int) ([]repository.Conversion, error)
}

func (m *mockConverter) Convert(ctx context.Context, amount float64, from, to string) (*service.ConversionResult, error) {
	return m.convertFunc(ctx, amount, from, to)
}

func (m *mockConverter) RefreshBase(_ context.Context, _ string) error {
	return nil // Not used in handler tests
}

func (m *mockConverter) RecentConversions(ctx context.Context, limit int) ([]repository.Conversion, error) {
	return m.recentConversionsFunc(ctx, limit)
}
