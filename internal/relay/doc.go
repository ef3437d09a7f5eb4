// Package relay maintains the persistent websocket channel to the link relay.
//
// Conn drives a small state machine (Disconnected, Connecting, Connected,
// BackoffWait, Closing) around a single Socket. Inbound data frames are
// handed to a dispatch callback in arrival order. A heartbeat timer, re-armed
// by every server ping, force-closes a silent socket; any close that was not
// requested through Disconnect schedules a reconnect after Backoff.
//
// At most one socket and one timer (heartbeat or backoff) are live at a time.
// Socket and timer callbacks carry the generation that created them and are
// ignored once superseded.
package relay
