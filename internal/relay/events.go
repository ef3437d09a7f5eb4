package relay

import "time"

// Event kinds passed to Config.OnEvent.
const (
	EventOpen             = "open"              // payload: channel URL
	EventMessage          = "message"           // payload: []byte frame
	EventPing             = "ping"              // payload: []byte ping data
	EventError            = "error"             // payload: error
	EventClose            = "close"             // payload: CloseEvent
	EventHeartbeatTimeout = "heartbeat_timeout" // payload: time.Duration idle window
	EventBackoff          = "backoff"           // payload: BackoffEvent
)

// CloseEvent describes an observed close of the socket.
type CloseEvent struct {
	Code      int
	Reason    string
	Reconnect bool
}

// BackoffEvent describes a scheduled reconnect attempt.
type BackoffEvent struct {
	Retry int
	Wait  time.Duration
}

type notice struct {
	kind  string
	event any
}
