// Package instrument implements the Instrument Registry.
//
// The registry maps a symbol to its contract multiplier (units per standard lot)
// and display precision. It is built once at start-up and never mutated afterwards.
// Unknown symbols resolve to DefaultMultiplier and DefaultDisplayDecimals.
package instrument
