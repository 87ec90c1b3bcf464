package analytics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rickgao/pricestream/internal/instrument"
	"github.com/rickgao/pricestream/internal/pricetable"
)

// ErrInvalidNumericInput is returned when a string input is not a number.
var ErrInvalidNumericInput = errors.New("invalid numeric input")

// Side is the direction of a position.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// ParseSide parses "buy" or "sell" (case-insensitive).
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// Position is a consumer-owned open position.
type Position struct {
	Side      Side
	Symbol    string
	OpenPrice decimal.Decimal
	Volume    decimal.Decimal // Lots
}

// Engine computes figures against an Instrument Registry.
type Engine struct {
	instruments *instrument.Registry
}

// New creates an Engine. A nil registry means instrument.Default().
func New(instruments *instrument.Registry) *Engine {
	if instruments == nil {
		instruments = instrument.Default()
	}
	return &Engine{instruments: instruments}
}

// Instruments returns the registry the engine resolves symbols against.
func (e *Engine) Instruments() *instrument.Registry {
	return e.instruments
}

// ProfitAndLoss returns the profit (positive) or loss (negative) of a position
// opened at open and valued at current:
//
//	buy:  (current - open) * volume * multiplier
//	sell: (open - current) * volume * multiplier
func (e *Engine) ProfitAndLoss(side Side, open, current, volume decimal.Decimal, symbol string) decimal.Decimal {
	diff := current.Sub(open)
	if side == Sell {
		diff = open.Sub(current)
	}
	return diff.Mul(volume).Mul(e.instruments.Multiplier(symbol))
}

// ProfitAndLossString is ProfitAndLoss over decimal strings.
func (e *Engine) ProfitAndLossString(side Side, open, current, volume, symbol string) (decimal.Decimal, error) {
	o, err := ParseNumeric(open)
	if err != nil {
		return decimal.Zero, fmt.Errorf("open price: %w", err)
	}
	c, err := ParseNumeric(current)
	if err != nil {
		return decimal.Zero, fmt.Errorf("current price: %w", err)
	}
	v, err := ParseNumeric(volume)
	if err != nil {
		return decimal.Zero, fmt.Errorf("volume: %w", err)
	}
	return e.ProfitAndLoss(side, o, c, v, symbol), nil
}

// PositionPnL values a position against the latest quote: buys close at the
// bid, sells close at the ask.
func (e *Engine) PositionPnL(pos Position, q pricetable.Quote) (decimal.Decimal, error) {
	closing := q.Bid
	if pos.Side == Sell {
		closing = q.Ask
	}
	current, err := ParseNumeric(closing)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s quote: %w", pos.Symbol, err)
	}
	return e.ProfitAndLoss(pos.Side, pos.OpenPrice, current, pos.Volume, pos.Symbol), nil
}

// FormatPrice renders a price with the symbol's display precision.
func (e *Engine) FormatPrice(price decimal.Decimal, symbol string) string {
	return price.StringFixed(e.instruments.DisplayDecimals(symbol))
}

// FormatPriceString is FormatPrice over a decimal string.
func (e *Engine) FormatPriceString(price, symbol string) (string, error) {
	p, err := ParseNumeric(price)
	if err != nil {
		return "", err
	}
	return e.FormatPrice(p, symbol), nil
}

// FormatPercentage renders value with two decimals, a trailing "%" and a
// leading "+" when the value is not negative.
func FormatPercentage(value decimal.Decimal) string {
	fixed := value.StringFixed(2)
	switch {
	case !value.IsNegative():
		return "+" + fixed + "%"
	case !strings.HasPrefix(fixed, "-"):
		// Small negatives round to zero; keep the sign.
		return "-" + fixed + "%"
	}
	return fixed + "%"
}

// FormatPercentageString is FormatPercentage over a decimal string.
func FormatPercentageString(value string) (string, error) {
	v, err := ParseNumeric(value)
	if err != nil {
		return "", err
	}
	return FormatPercentage(v), nil
}

// FormatCurrency renders a USD amount as "$1,234.50" or "-$12.00".
func FormatCurrency(amount decimal.Decimal) string {
	fixed := amount.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if amount.IsNegative() && fixed != "0.00" {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// ParseNumeric parses a decimal string, rejecting anything that is not a
// finite number.
func ParseNumeric(s string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("%w: empty string", ErrInvalidNumericInput)
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidNumericInput, s)
	}
	return d, nil
}
