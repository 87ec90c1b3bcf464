// Package protocol defines the JSON wire format spoken with the price-feed server.
//
// Every frame is a UTF-8 text message holding one JSON object discriminated by
// its "type" field. Client commands are subscribe, unsubscribe and ping; the
// server pushes priceUpdate, pong, welcome, subscription_confirmed and domain
// events such as market_news.
package protocol
