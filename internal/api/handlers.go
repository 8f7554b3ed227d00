package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"convertsvc/internal/service"
)

// ConvertResponse represents the response for a successful conversion
type ConvertResponse struct {
	From            string  `json:"from" example:"USD"`
	To              string  `json:"to" example:"EUR"`
	Amount          float64 `json:"amount" example:"100"`
	Rate            float64 `json:"rate" example:"0.92"`
	ConvertedAmount float64 `json:"convertedAmount" example:"92"`
	Cached          bool    `json:"cached" example:"false"`
}

// ConversionRecord represents one entry of the conversion history
type ConversionRecord struct {
	Base            string   `json:"base" example:"USD"`
	Target          string   `json:"target" example:"EUR"`
	Amount          float64  `json:"amount" example:"100"`
	Rate            *float64 `json:"rate,omitempty" example:"0.92"`
	ConvertedAmount *float64 `json:"convertedAmount,omitempty" example:"92"`
	Cached          bool     `json:"cached" example:"false"`
	Status          string   `json:"status" example:"SUCCESS"`
	RequestedAt     string   `json:"requestedAt" example:"2026-03-01T12:00:00Z"`
}

// HandleConvert godoc
// @Summary Convert an amount between currencies
// @Description Converts amount from one currency to another using the cached rate table for the base currency. A fresh table is fetched from the upstream provider when the cached one is older than the TTL.
// @Tags currency
// @Produce json
// @Param amount query number true "Amount to convert (non-negative)" minimum(0)
// @Param from query string true "Base currency code (3 letters)" minlength(3) maxlength(3)
// @Param to query string true "Target currency code (3 letters)" minlength(3) maxlength(3)
// @Success 200 {object} ConvertResponse "Conversion result"
// @Failure 400 {object} ErrorResponse "Invalid parameters or unknown target currency"
// @Failure 503 {object} ErrorResponse "Upstream rate provider unavailable"
// @Failure 500 {object} ErrorResponse "Internal error"
// @Router /currency/convert [get]
func HandleConvert(svc service.ConverterInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var verrs []ValidationError
		amount, err := strconv.ParseFloat(q.Get("amount"), 64)
		if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
			verrs = append(verrs, ValidationError{Field: "amount", Message: "Amount must be a non-negative number"})
		}
		from := q.Get("from")
		if !isCurrencyCode(from) {
			verrs = append(verrs, ValidationError{Field: "from", Message: "Currency code must be exactly 3 letters"})
		}
		to := q.Get("to")
		if !isCurrencyCode(to) {
			verrs = append(verrs, ValidationError{Field: "to", Message: "Currency code must be exactly 3 letters"})
		}
		if len(verrs) > 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Invalid parameters", Errors: verrs})
			return
		}

		result, err := svc.Convert(r.Context(), amount, from, to)
		if err != nil {
			var unknown *service.UnknownCurrencyError
			switch {
			case errors.As(err, &unknown):
				writeJSON(w, http.StatusBadRequest, ErrorResponse{
					Message: fmt.Sprintf("Currency code '%s' not found for base '%s'", unknown.Code, unknown.Base),
				})
			case errors.Is(err, service.ErrProviderUnavailable):
				writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
					Message: "Service unavailable. Unable to fetch exchange rates.",
				})
			default:
				writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
			}
			return
		}

		writeJSON(w, http.StatusOK, ConvertResponse{
			From:            result.From,
			To:              result.To,
			Amount:          result.Amount,
			Rate:            result.Rate,
			ConvertedAmount: result.ConvertedAmount,
			Cached:          result.Cached,
		})
	}
}

// HandleRecentConversions godoc
// @Summary List recent conversion requests
// @Description Returns the most recent conversion audit records, newest first. Only available when the audit log is enabled.
// @Tags currency
// @Produce json
// @Param limit query int false "Maximum number of records (default 20)" minimum(1)
// @Success 200 {array} ConversionRecord "Recent conversions"
// @Failure 400 {object} ErrorResponse "Invalid limit"
// @Failure 404 {object} ErrorResponse "Audit log disabled"
// @Failure 500 {object} ErrorResponse "Internal error"
// @Router /conversions/recent [get]
func HandleRecentConversions(svc service.ConverterInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, ErrorResponse{
					Message: "Invalid parameters",
					Errors:  []ValidationError{{Field: "limit", Message: "Limit must be a positive integer"}},
				})
				return
			}
			limit = parsed
		}

		records, err := svc.RecentConversions(r.Context(), limit)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidLimit):
				writeJSON(w, http.StatusBadRequest, ErrorResponse{
					Message: "Invalid parameters",
					Errors:  []ValidationError{{Field: "limit", Message: "Limit must be a positive integer"}},
				})
			case errors.Is(err, service.ErrAuditDisabled):
				writeJSON(w, http.StatusNotFound, ErrorResponse{Message: "Conversion history is not enabled"})
			default:
				writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
			}
			return
		}

		out := make([]ConversionRecord, 0, len(records))
		for _, rec := range records {
			out = append(out, ConversionRecord{
				Base:            rec.Base,
				Target:          rec.Target,
				Amount:          rec.Amount,
				Rate:            rec.Rate,
				ConvertedAmount: rec.ConvertedAmount,
				Cached:          rec.Cached,
				Status:          string(rec.Status),
				RequestedAt:     rec.RequestedAt.UTC().Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// isCurrencyCode checks whether a string is a well-formed 3-letter currency code.
func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, c := range code {
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}
