package service

// ConversionResult represents a completed conversion returned by the service layer.
// Cached reports whether the request was served without a provider fetch.
type ConversionResult struct {
	From            string
	To              string
	Amount          float64
	Rate            float64
	ConvertedAmount float64
	Cached          bool
}
