// Package analytics converts quotes and positions into displayed trading figures.
//
// Everything here is a pure function of its inputs plus the read-only
// Instrument Registry. Arithmetic is done in decimal so money figures are
// exact; string inputs that do not parse fail with ErrInvalidNumericInput.
package analytics
