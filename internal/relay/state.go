package relay

import "time"

// State is the lifecycle position of a Conn.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	BackoffWait
	Closing
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case BackoffWait:
		return "backoff"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}

// Default tunables.
const (
	DefaultHeartbeatTimeout = 11 * time.Second
	DefaultBackoffCap       = 5 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
)

// Backoff returns the wait before reconnect attempt number retries:
// min((100*retries)^2 ms, limit). Backoff(0, limit) is zero.
func Backoff(retries int, limit time.Duration) time.Duration {
	if retries <= 0 {
		return 0
	}
	if retries >= 1000 {
		return limit
	}
	step := int64(retries) * 100
	d := time.Duration(step*step) * time.Millisecond
	if d > limit {
		return limit
	}
	return d
}
