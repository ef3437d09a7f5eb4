package relay

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	maxFrameSize = 4 << 20
	controlWait  = 5 * time.Second
)

// Close codes used by the channel.
const (
	CloseNormal   = websocket.CloseNormalClosure
	CloseAbnormal = websocket.CloseAbnormalClosure
)

// Socket is one live connection to the relay.
type Socket interface {
	// ReadFrame blocks for the next data frame. Control frames are handled
	// while reading.
	ReadFrame() ([]byte, error)
	// SetPingHandler installs fn for inbound pings. It must be called before
	// the first ReadFrame.
	SetPingHandler(fn func(data []byte))
	Pong(data []byte) error
	// Close sends a close frame with code and releases the connection.
	Close(code int, reason string) error
	// Abort drops the connection without a close handshake.
	Abort() error
}

// Dialer opens sockets.
type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

// ChannelURL returns scheme://linkURL/linkID. A linkURL that already names
// a scheme is used as is.
func ChannelURL(scheme, linkURL, linkID string) string {
	linkURL = strings.TrimRight(linkURL, "/")
	if !strings.Contains(linkURL, "://") {
		linkURL = scheme + "://" + linkURL
	}
	return linkURL + "/" + linkID
}

// WebsocketDialer dials with gorilla/websocket.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
}

func (d WebsocketDialer) Dial(ctx context.Context, url string) (Socket, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	c, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	c.SetReadLimit(maxFrameSize)
	return &wsSocket{c: c}, nil
}

type wsSocket struct {
	c *websocket.Conn
}

func (s *wsSocket) ReadFrame() ([]byte, error) {
	_, b, err := s.c.ReadMessage()
	return b, err
}

func (s *wsSocket) SetPingHandler(fn func(data []byte)) {
	s.c.SetPingHandler(func(appData string) error {
		fn([]byte(appData))
		return nil
	})
}

func (s *wsSocket) Pong(data []byte) error {
	err := s.c.WriteControl(websocket.PongMessage, data, time.Now().Add(controlWait))
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return nil
	}
	return err
}

func (s *wsSocket) Close(code int, reason string) error {
	msg := websocket.FormatCloseMessage(code, reason)
	werr := s.c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(controlWait))
	cerr := s.c.Close()
	if werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
		return werr
	}
	return cerr
}

func (s *wsSocket) Abort() error { return s.c.Close() }

// closeStatus extracts the close code carried by a read error. Errors that
// are not close frames count as an abnormal closure.
func closeStatus(err error) (int, string) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text
	}
	return CloseAbnormal, ""
}
