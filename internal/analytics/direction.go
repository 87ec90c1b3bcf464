package analytics

import "github.com/shopspring/decimal"

// Direction classifies a price change.
type Direction int

const (
	Neutral Direction = iota
	Up
	Down
)

// ClassifyChange returns Up for value > 0, Down for value < 0 and Neutral for 0.
func ClassifyChange(value decimal.Decimal) Direction {
	switch value.Sign() {
	case 1:
		return Up
	case -1:
		return Down
	}
	return Neutral
}

// ClassifyChangeString is ClassifyChange over a decimal string.
func ClassifyChangeString(value string) (Direction, error) {
	v, err := ParseNumeric(value)
	if err != nil {
		return Neutral, err
	}
	return ClassifyChange(v), nil
}

// ChangeGlyph returns the marker for a change. It goes through ClassifyChange
// so the two can never disagree.
func ChangeGlyph(value decimal.Decimal) string {
	return ClassifyChange(value).Glyph()
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return "neutral"
}

// Glyph returns the visual marker.
func (d Direction) Glyph() string {
	switch d {
	case Up:
		return "▲"
	case Down:
		return "▼"
	}
	return "▬"
}

// CSSClass returns the presentation class name.
func (d Direction) CSSClass() string {
	return "price-" + d.String()
}
