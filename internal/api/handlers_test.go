package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"convertsvc/internal/repository"
	"convertsvc/internal/service"
)

func TestHandleConvert(t *testing.T) {
	t.Run("successful conversion returns 200", func(t *testing.T) {
		svc := &mockConverter{
			convertFunc: func(ctx context.Context, amount float64, from, to string) (*service.ConversionResult, error) {
				if amount != 100 || from != "USD" || to != "EUR" {
					t.Errorf("unexpected args: %v %s %s", amount, from, to)
				}
				return &service.ConversionResult{
					From: "USD", To: "EUR", Amount: 100, Rate: 0.92, ConvertedAmount: 92, Cached: false,
				}, nil
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/currency/convert?amount=100&from=USD&to=EUR", nil)
		w := httptest.NewRecorder()

		HandleConvert(svc).ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}

		var resp ConvertResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if resp.ConvertedAmount != 92 || resp.Rate != 0.92 || resp.Cached {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("cached result is flagged", func(t *testing.T) {
		svc := &mockConverter{
			convertFunc: func(ctx context.Context, amount float64, from, to string) (*service.ConversionResult, error) {
				return &service.ConversionResult{
					From: "USD", To: "JPY", Amount: 50, Rate: 150.0, ConvertedAmount: 7500, Cached: true,
				}, nil
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/currency/convert?amount=50&from=USD&to=JPY", nil)
		w := httptest.NewRecorder()

		HandleConvert(svc).ServeHTTP(w, req)

		var resp ConvertResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if !resp.Cached {
			t.Error("expected cached=true")
		}
	})

	t.Run("invalid parameters return 400 with error list", func(t *testing.T) {
		tests := []struct {
			name   string
			query  string
			fields []string
		}{
			{"missing amount", "from=USD&to=EUR", []string{"amount"}},
			{"negative amount", "amount=-5&from=USD&to=EUR", []string{"amount"}},
			{"non-numeric amount", "amount=abc&from=USD&to=EUR", []string{"amount"}},
			{"short from", "amount=10&from=US&to=EUR", []string{"from"}},
			{"long to", "amount=10&from=USD&to=EURO", []string{"to"}},
			{"numeric code", "amount=10&from=US1&to=EUR", []string{"from"}},
			{"everything wrong", "amount=x&from=&to=12", []string{"amount", "from", "to"}},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				svc := &mockConverter{
					convertFunc: func(ctx context.Context, amount float64, from, to string) (*service.ConversionResult, error) {
						t.Fatal("Convert must not be called on validation failure")
						return nil, nil
					},
				}

				req := httptest.NewRequest(http.MethodGet, "/currency/convert?"+tc.query, nil)
				w := httptest.NewRecorder()

				HandleConvert(svc).ServeHTTP(w, req)

				if w.Code != http.StatusBadRequest {
					t.Fatalf("Expected status 400, got %d", w.Code)
				}
				var resp ErrorResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				if resp.Message != "Invalid parameters" {
					t.Errorf("Expected message 'Invalid parameters', got %q", resp.Message)
				}
				if len(resp.Errors) != len(tc.fields) {
					t.Fatalf("Expected %d errors, got %+v", len(tc.fields), resp.Errors)
				}
				for i, f := range tc.fields {
					if resp.Errors[i].Field != f {
						t.Errorf("Expected error for field %q, got %q", f, resp.Errors[i].Field)
					}
				}
			})
		}
	})

	t.Run("unknown currency returns 400 with exact message", func(t *testing.T) {
		svc := &mockConverter{
			convertFunc: func(ctx context.Context, amount float64, from, to string) (*service.ConversionResult, error) {
				return nil, &service.UnknownCurrencyError{Code: "XYZ", Base: "USD"}
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/currency/convert?amount=10&from=USD&to=XYZ", nil)
		w := httptest.NewRecorder()

		HandleConvert(svc).ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
		var resp ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		expected := "Currency code 'XYZ' not found for base 'USD'"
		if resp.Message != expected {
			t.Errorf("Expected message %q, got %q", expected, resp.Message)
		}
	})

	t.Run("provider unavailable returns 503 with exact message", func(t *testing.T) {
		svc := &mockConverter{
			convertFunc: func(ctx context.Context, amount float64, from, to string) (*service.ConversionResult, error) {
				return nil, service.ErrProviderUnavailable
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/currency/convert?amount=10&from=USD&to=EUR", nil)
		w := httptest.NewRecorder()

		HandleConvert(svc).ServeHTTP(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", w.Code)
		}
		var resp ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		expected := "Service unavailable. Unable to fetch exchange rates."
		if resp.Message != expected {
			t.Errorf("Expected message %q, got %q", expected, resp.Message)
		}
	})

	t.Run("unexpected error returns 500", func(t *testing.T) {
		svc := &mockConverter{
			convertFunc: func(ctx context.Context, amount float64, from, to string) (*service.ConversionResult, error) {
				return nil, context.DeadlineExceeded
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/currency/convert?amount=10&from=USD&to=EUR", nil)
		w := httptest.NewRecorder()

		HandleConvert(svc).ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Expected status 500, got %d", w.Code)
		}
		var resp ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if resp.Message != "Internal server error" {
			t.Errorf("Expected generic message, got %q", resp.Message)
		}
	})

	t.Run("zero amount is valid", func(t *testing.T) {
		svc := &mockConverter{
			convertFunc: func(ctx context.Context, amount float64, from, to string) (*service.ConversionResult, error) {
				return &service.ConversionResult{From: "USD", To: "EUR", Amount: 0, Rate: 0.92, ConvertedAmount: 0}, nil
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/currency/convert?amount=0&from=USD&to=EUR", nil)
		w := httptest.NewRecorder()

		HandleConvert(svc).ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})
}

func TestHandleRecentConversions(t *testing.T) {
	t.Run("returns records", func(t *testing.T) {
		rate := 0.92
		converted := 92.0
		svc := &mockConverter{
			recentConversionsFunc: func(ctx context.Context, limit int) ([]repository.Conversion, error) {
				if limit != 20 {
					t.Errorf("Expected default limit 20, got %d", limit)
				}
				return []repository.Conversion{{
					Base: "USD", Target: "EUR", Amount: 100,
					Rate: &rate, ConvertedAmount: &converted,
					Status:      repository.StatusSuccess,
					RequestedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
				}}, nil
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/conversions/recent", nil)
		w := httptest.NewRecorder()

		HandleRecentConversions(svc).ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var resp []ConversionRecord
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if len(resp) != 1 || resp[0].Status != "SUCCESS" || resp[0].RequestedAt != "2026-03-01T12:00:00Z" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("invalid limit returns 400", func(t *testing.T) {
		svc := &mockConverter{
			recentConversionsFunc: func(ctx context.Context, limit int) ([]repository.Conversion, error) {
				return nil, service.ErrInvalidLimit
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/conversions/recent?limit=-1", nil)
		w := httptest.NewRecorder()

		HandleRecentConversions(svc).ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("audit disabled returns 404", func(t *testing.T) {
		svc := &mockConverter{
			recentConversionsFunc: func(ctx context.Context, limit int) ([]repository.Conversion, error) {
				return nil, service.ErrAuditDisabled
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/conversions/recent", nil)
		w := httptest.NewRecorder()

		HandleRecentConversions(svc).ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})
}
