/*
Gateway implements the realtime gateway client session.

# Module
  - session: single goroutine owning the connection, handshake, heartbeat and sequence
  - policy: reconnect decisions, backoff and compression mode
  - events: per kind topic buses fed by dispatched frames

# Source
 1. frames from the websocket read loop, decoded by codec and schema
 2. timers (settle, retry, cooldown, heartbeat, ack deadline)
 3. Connect / Disconnect / Close from the caller

# Produce
  - identify and heartbeat frames to the server
  - domain events and state transitions to subscribers
*/
package gateway
