package service

import (
	"errors"
	"fmt"
)

// ErrProviderUnavailable indicates the external rate provider could not serve
// a usable rate table (network error, non-2xx status, malformed payload,
// explicit failure flag, or timeout).
var ErrProviderUnavailable = errors.New("unable to fetch exchange rates")

// ErrAuditDisabled indicates the conversion audit log is not configured.
var ErrAuditDisabled = errors.New("conversion audit log is disabled")

// ErrInvalidLimit indicates a non-positive history limit.
var ErrInvalidLimit = errors.New("limit must be positive")

// UnknownCurrencyError indicates the requested target code is absent from the
// provider's table for the given base.
type UnknownCurrencyError struct {
	Code string
	Base string
}

func (e *UnknownCurrencyError) Error() string {
	return fmt.Sprintf("currency code '%s' not found for base '%s'", e.Code, e.Base)
}
