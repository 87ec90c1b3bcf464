package instrument

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Fallback values for symbols the registry does not know.
const (
	DefaultDisplayDecimals int32 = 5
)

// DefaultMultiplier is the contract size for unknown symbols (a standard FX lot).
var DefaultMultiplier = decimal.NewFromInt(100000)

// Instrument describes a tradable symbol.
type Instrument struct {
	Symbol             string
	Name               string
	ContractMultiplier decimal.Decimal // Units per standard lot
	DisplayDecimals    int32           // Digits after the decimal point when rendering prices
}

// Builtin returns the instruments known without any external configuration.
func Builtin() []Instrument {
	fx := func(symbol, name string, decimals int32) Instrument {
		return Instrument{Symbol: symbol, Name: name, ContractMultiplier: decimal.NewFromInt(100000), DisplayDecimals: decimals}
	}

	return []Instrument{
		fx("EURUSD", "Euro / US Dollar", 5),
		fx("GBPUSD", "British Pound / US Dollar", 5),
		fx("AUDUSD", "Australian Dollar / US Dollar", 5),
		fx("USDCHF", "US Dollar / Swiss Franc", 5),

		// JPY-quoted pairs
		fx("USDJPY", "US Dollar / Japanese Yen", 2),
		fx("EURJPY", "Euro / Japanese Yen", 2),
		fx("GBPJPY", "British Pound / Japanese Yen", 2),

		// Metals: troy ounces per lot
		{Symbol: "XAUUSD", Name: "Gold / US Dollar", ContractMultiplier: decimal.NewFromInt(100), DisplayDecimals: 2},
		{Symbol: "XAGUSD", Name: "Silver / US Dollar", ContractMultiplier: decimal.NewFromInt(5000), DisplayDecimals: 2},

		// Crypto: one coin per lot
		{Symbol: "BTCUSD", Name: "Bitcoin / US Dollar", ContractMultiplier: decimal.NewFromInt(1), DisplayDecimals: 2},
		{Symbol: "ETHUSD", Name: "Ethereum / US Dollar", ContractMultiplier: decimal.NewFromInt(1), DisplayDecimals: 2},
	}
}

// Registry is a read-only symbol lookup. The zero value is not usable; use New.
type Registry struct {
	instruments map[string]Instrument
}

// New builds a registry from the builtin table plus the given overrides.
// Later entries replace earlier ones with the same symbol. Overrides with a
// zero multiplier or a negative precision keep the builtin (or default) value
// for that field.
func New(overrides ...Instrument) *Registry {
	r := &Registry{instruments: make(map[string]Instrument)}

	for _, inst := range Builtin() {
		r.instruments[inst.Symbol] = inst
	}
	for _, inst := range overrides {
		r.merge(inst)
	}

	return r
}

var defaultRegistry = New()

// Default returns the registry holding only the builtin table.
func Default() *Registry {
	return defaultRegistry
}

func (r *Registry) merge(inst Instrument) {
	symbol := Normalize(inst.Symbol)
	if symbol == "" {
		return
	}

	base, ok := r.instruments[symbol]
	if !ok {
		base = Instrument{
			Symbol:             symbol,
			ContractMultiplier: DefaultMultiplier,
			DisplayDecimals:    DefaultDisplayDecimals,
		}
	}

	if inst.Name != "" {
		base.Name = inst.Name
	}
	if inst.ContractMultiplier.IsPositive() {
		base.ContractMultiplier = inst.ContractMultiplier
	}
	if inst.DisplayDecimals >= 0 {
		base.DisplayDecimals = inst.DisplayDecimals
	}

	r.instruments[symbol] = base
}

// Lookup returns the instrument for a symbol. Unknown symbols resolve to a
// synthetic instrument carrying the fallback multiplier and precision; the
// second return value reports whether the symbol was known.
func (r *Registry) Lookup(symbol string) (Instrument, bool) {
	symbol = Normalize(symbol)
	if inst, ok := r.instruments[symbol]; ok {
		return inst, true
	}
	return Instrument{
		Symbol:             symbol,
		ContractMultiplier: DefaultMultiplier,
		DisplayDecimals:    DefaultDisplayDecimals,
	}, false
}

// Multiplier returns the contract multiplier for a symbol.
func (r *Registry) Multiplier(symbol string) decimal.Decimal {
	inst, _ := r.Lookup(symbol)
	return inst.ContractMultiplier
}

// DisplayDecimals returns the price precision for a symbol.
func (r *Registry) DisplayDecimals(symbol string) int32 {
	inst, _ := r.Lookup(symbol)
	return inst.DisplayDecimals
}

// Known reports whether the symbol has an explicit entry.
func (r *Registry) Known(symbol string) bool {
	_, ok := r.instruments[Normalize(symbol)]
	return ok
}

// All returns every explicit instrument sorted by symbol.
func (r *Registry) All() []Instrument {
	result := make([]Instrument, 0, len(r.instruments))
	for _, inst := range r.instruments {
		result = append(result, inst)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Symbol < result[j].Symbol })
	return result
}

// Normalize trims and upper-cases a symbol.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
