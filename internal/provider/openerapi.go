package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

var _ RatesProvider = (*OpenERAPIProvider)(nil)

// resultSuccess is the success sentinel in the open.er-api.com payload.
const resultSuccess = "success"

// OpenERAPIProvider fetches rate tables from the open.er-api.com API.
type OpenERAPIProvider struct {
	baseURL string
	client  *http.Client
}

// NewOpenERAPIProvider creates a new OpenERAPIProvider with the given configuration.
func NewOpenERAPIProvider(baseURL string, timeoutSec int) *OpenERAPIProvider {
	if baseURL == "" {
		baseURL = "https://open.er-api.com"
	}
	return &OpenERAPIProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}
}

// getLatestURL forms the API URL for fetching the rate table.
func (p *OpenERAPIProvider) getLatestURL(base string) string {
	return fmt.Sprintf("%s/v6/latest/%s", p.baseURL, base)
}

// open.er-api.com latest API response structure
type erAPIResponse struct {
	Result string             `json:"result"`
	Rates  map[string]float64 `json:"rates"`
}

// FetchRates fetches the full rate table for the given base currency.
func (p *OpenERAPIProvider) FetchRates(ctx context.Context, base string) (map[string]float64, error) {
	reqURL := p.getLatestURL(base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("external API request creation failed: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("external API request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("external API returned status %d: %s", resp.StatusCode, string(body))
	}
	var result erAPIResponse
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode external API response: %w", err)
	}
	if result.Result != resultSuccess {
		return nil, fmt.Errorf("external API returned result=%q for base %s", result.Result, base)
	}
	if len(result.Rates) == 0 {
		return nil, fmt.Errorf("external API returned empty rate table for base %s", base)
	}
	return result.Rates, nil
}
