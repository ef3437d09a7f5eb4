package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/gorilla/websocket"
)

// ErrDisconnected settles a pending Connect when Disconnect is called.
var ErrDisconnected = errors.New("relay: disconnected")

// ConnectionError reports a failed attempt to open the channel.
type ConnectionError struct {
	URL       string
	Err       error
	Transient bool
}

func (e *ConnectionError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("relay: %s connection error for %s: %v", kind, e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsTransient reports whether a dial failure is worth retrying. Network
// level failures (unreachable host, refused or reset connection, DNS,
// timeouts) are transient; a rejected handshake or an unusable URL is not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, websocket.ErrBadHandshake) {
		return false
	}
	for _, target := range []error{
		syscall.ECONNREFUSED,
		syscall.ECONNRESET,
		syscall.EHOSTUNREACH,
		syscall.ENETUNREACH,
		syscall.ETIMEDOUT,
		context.DeadlineExceeded,
		io.EOF,
		io.ErrUnexpectedEOF,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
