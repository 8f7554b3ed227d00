package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Status classifies the outcome of a conversion request.
type Status string

// Status values for conversion outcomes.
const (
	StatusSuccess             Status = "SUCCESS"
	StatusUnknownCurrency     Status = "UNKNOWN_CURRENCY"
	StatusProviderUnavailable Status = "PROVIDER_UNAVAILABLE"
)

// Conversion represents one conversion request record in the DB.
// Rate and ConvertedAmount are nil for failed requests.
type Conversion struct {
	ID              int64
	Base            string
	Target          string
	Amount          float64
	Rate            *float64
	ConvertedAmount *float64
	Cached          bool
	Status          Status
	RequestedAt     time.Time
}

// ConversionRepository defines DB operations for the conversion audit log.
type ConversionRepository interface {
	Record(ctx context.Context, c *Conversion) error
	ListRecent(ctx context.Context, limit int) ([]Conversion, error)
}

// PostgresConversionRepository is an implementation of ConversionRepository using PostgreSQL.
type PostgresConversionRepository struct {
	db *sql.DB
}

// NewPostgresConversionRepository creates a new PostgresConversionRepository.
func NewPostgresConversionRepository(db *sql.DB) ConversionRepository {
	return &PostgresConversionRepository{db: db}
}

// Record inserts one conversion audit record.
func (r *PostgresConversionRepository) Record(ctx context.Context, c *Conversion) error {
	query := `INSERT INTO conversions (base, target, amount, rate, converted_amount, cached, status, requested_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := r.db.ExecContext(ctx, query,
		c.Base, c.Target, c.Amount, c.Rate, c.ConvertedAmount, c.Cached, c.Status, c.RequestedAt,
	); err != nil {
		return fmt.Errorf("failed to record conversion: %w", err)
	}
	return nil
}

// ListRecent returns the most recent conversion records, newest first.
func (r *PostgresConversionRepository) ListRecent(ctx context.Context, limit int) ([]Conversion, error) {
	query := `SELECT id, base, target, amount, rate, converted_amount, cached, status, requested_at
              FROM conversions
              ORDER BY requested_at DESC, id DESC
              LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}
	defer rows.Close() //nolint:errcheck // best-effort close

	var out []Conversion
	for rows.Next() {
		var c Conversion
		var rate, converted sql.NullFloat64
		var statusStr string
		if err := rows.Scan(&c.ID, &c.Base, &c.Target, &c.Amount, &rate, &converted, &c.Cached, &statusStr, &c.RequestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}
		c.Status = Status(statusStr)
		if rate.Valid {
			c.Rate = &rate.Float64
		}
		if converted.Valid {
			c.ConvertedAmount = &converted.Float64
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversions: %w", err)
	}
	return out, nil
}
