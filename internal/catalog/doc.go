// Package catalog reads the instrument catalog from PostgreSQL.
//
// The symbols table carries display names and the last quote the backend
// knew about:
//
//	symbols(symbol, name, bid, ask, change, change_percent)
//
// Names feed the Instrument Registry; quotes seed the Price Table so the
// first render is not empty while the feed connects.
package catalog
