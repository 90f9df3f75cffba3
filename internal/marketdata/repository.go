package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
)

// Repository stores adjusted closes in Postgres
// ⭐ SSOT: prices table reads and writes happen here only
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new price repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ contracts.PriceSource = (*Repository)(nil)

// SaveSeries upserts every point of series in one transaction
func (r *Repository) SaveSeries(ctx context.Context, series contracts.PriceSeries) error {
	if series.Len() == 0 {
		return nil
	}

	query := `
		INSERT INTO prices (symbol, trade_date, adj_close, fetched_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			adj_close = EXCLUDED.adj_close,
			fetched_at = NOW()
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range series.Points {
		if _, err := tx.Exec(ctx, query, series.Symbol, p.Date, p.AdjClose); err != nil {
			return fmt.Errorf("insert price for %s on %s: %w", series.Symbol, p.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// FetchSeries reads the stored closes of symbol in [start, end].
// A zero start or end leaves that side open.
func (r *Repository) FetchSeries(ctx context.Context, symbol string, start, end time.Time) (contracts.PriceSeries, error) {
	query := `
		SELECT trade_date, adj_close
		FROM prices
		WHERE symbol = $1
		  AND ($2::date IS NULL OR trade_date >= $2)
		  AND ($3::date IS NULL OR trade_date <= $3)
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, symbol, nullableDate(start), nullableDate(end))
	if err != nil {
		return contracts.PriceSeries{}, fmt.Errorf("query prices for %s: %w", symbol, err)
	}
	defer rows.Close()

	series := contracts.PriceSeries{Symbol: symbol}
	for rows.Next() {
		var p contracts.PricePoint
		if err := rows.Scan(&p.Date, &p.AdjClose); err != nil {
			return contracts.PriceSeries{}, fmt.Errorf("scan price for %s: %w", symbol, err)
		}
		p.Date = p.Date.UTC()
		series.Points = append(series.Points, p)
	}

	if err := rows.Err(); err != nil {
		return contracts.PriceSeries{}, fmt.Errorf("iterate prices for %s: %w", symbol, err)
	}

	return series, nil
}

// LatestDate returns the last stored trade date of symbol
func (r *Repository) LatestDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	var latest *time.Time
	err := r.pool.QueryRow(ctx, `SELECT MAX(trade_date) FROM prices WHERE symbol = $1`, symbol).Scan(&latest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest date for %s: %w", symbol, err)
	}
	if latest == nil {
		return time.Time{}, false, nil
	}
	return latest.UTC(), true, nil
}

// Symbols returns every symbol with stored prices
func (r *Repository) Symbols(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT symbol FROM prices ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	symbols := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
