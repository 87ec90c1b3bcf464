package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/rickgao/pricestream/internal/instrument"
	"github.com/rickgao/pricestream/internal/pricetable"
)

// Querier is the subset of *pgxpool.Pool used by the catalog.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Entry is one row of the symbols table. Numeric columns are read as text
// so the exact stored value reaches the Price Table.
type Entry struct {
	Symbol        string
	Name          string
	Bid           string
	Ask           string
	Change        string
	ChangePercent string
}

// HasQuote reports whether the row carries a usable bid and ask. Postgres
// numeric can hold NaN, which is not a usable price.
func (e Entry) HasQuote() bool {
	if _, err := decimal.NewFromString(e.Bid); err != nil {
		return false
	}
	_, err := decimal.NewFromString(e.Ask)
	return err == nil
}

// Quote converts the row into a seed quote.
func (e Entry) Quote(at time.Time) pricetable.Quote {
	return pricetable.Quote{
		Symbol:        e.Symbol,
		Bid:           e.Bid,
		Ask:           e.Ask,
		Change:        e.Change,
		ChangePercent: e.ChangePercent,
		ReceivedAt:    at,
	}
}

const selectSymbols = `
	SELECT symbol,
	       COALESCE(name, ''),
	       COALESCE(bid::text, ''),
	       COALESCE(ask::text, ''),
	       COALESCE(change::text, ''),
	       COALESCE(change_percent::text, '')
	FROM symbols
	ORDER BY symbol
`

// Catalog loads instrument metadata and seed quotes.
type Catalog struct {
	db     Querier
	logger *slog.Logger
}

// New creates a Catalog over db.
func New(db Querier, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{db: db, logger: logger}
}

// Load reads every row of the symbols table.
func (c *Catalog) Load(ctx context.Context) ([]Entry, error) {
	start := time.Now()

	rows, err := c.db.Query(ctx, selectSymbols)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Symbol, &e.Name, &e.Bid, &e.Ask, &e.Change, &e.ChangePercent); err != nil {
			return nil, fmt.Errorf("scan symbol row: %w", err)
		}
		e.Symbol = instrument.Normalize(e.Symbol)
		if e.Symbol == "" {
			continue
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate symbols: %w", err)
	}

	c.logger.Info("catalog loaded",
		"symbols", len(entries),
		"duration", time.Since(start),
	)

	return entries, nil
}

// Instruments turns entries into registry overrides. Only names are taken
// from the catalog; multiplier and precision keep their configured values.
func Instruments(entries []Entry) []instrument.Instrument {
	result := make([]instrument.Instrument, 0, len(entries))
	for _, e := range entries {
		result = append(result, instrument.Instrument{
			Symbol:          e.Symbol,
			Name:            e.Name,
			DisplayDecimals: -1,
		})
	}
	return result
}

// SeedQuotes returns the quotes of entries that have both sides of the book.
func SeedQuotes(entries []Entry, at time.Time) []pricetable.Quote {
	result := make([]pricetable.Quote, 0, len(entries))
	for _, e := range entries {
		if e.HasQuote() {
			result = append(result, e.Quote(at))
		}
	}
	return result
}
