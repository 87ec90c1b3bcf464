// Package httpapi exposes the feed client's state over HTTP with gin.
//
// Routes:
//
//	GET    /health                 connection status, 503 unless connected
//	GET    /prices                 every quote with formatted figures
//	GET    /prices/:symbol         one quote
//	GET    /subscriptions          desired and acknowledged symbols
//	POST   /subscriptions          {"symbols": [...]} adds symbols
//	DELETE /subscriptions/:symbol  removes a symbol
//	POST   /pnl                    values a position against the latest quote
//	GET    /stats                  dispatcher counters
//	GET    /version                build information
package httpapi
