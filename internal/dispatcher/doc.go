// Package dispatcher routes inbound feed frames to their consumers.
//
// Every frame is classified by its "type" field:
//   - priceUpdate: quotes are applied to the Price Table, then price listeners run
//   - pong: counted only (the Connection Manager owns keepalive)
//   - welcome: logged and handed to welcome listeners
//   - subscription_confirmed: handed to confirmation listeners
//   - market_news and other registered event types: listeners keyed by type
//   - anything else: generic listeners, payload verbatim
//
// Malformed frames are logged and counted, never fatal.
package dispatcher
