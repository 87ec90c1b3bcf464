// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Owns the single WebSocket connection to the price feed
//   - Publishes lifecycle state (Connecting, Connected, Disconnected)
//   - Sends a heartbeat ping and drops connections that stop answering
//   - Reconnects with capped exponential backoff until Stop is called
//   - Hands every inbound frame to its observers, in arrival order
package connection
