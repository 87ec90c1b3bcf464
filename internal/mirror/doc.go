// Package mirror republishes applied quotes to Redis.
//
// For every symbol the latest quote is stored under <key_prefix><SYMBOL> and
// announced on the <channel_prefix><SYMBOL> pub/sub channel. Only the current
// value is kept; there is no history. Redis failures are logged and counted,
// never propagated to the feed.
package mirror
