package relay_test

import (
	"context"
	"io"
	"sync"

	"github.com/gorilla/websocket"

	"linkmgr/internal/relay"
)

type fakeSocket struct {
	frames chan []byte
	done   chan struct{}

	mu        sync.Mutex
	once      sync.Once
	readErr   error
	ping      func([]byte)
	pongs     [][]byte
	closeCode int
	aborted   bool
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{frames: make(chan []byte, 16), done: make(chan struct{})}
}

func (s *fakeSocket) ReadFrame() ([]byte, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return nil, s.readErr
	}
}

func (s *fakeSocket) SetPingHandler(fn func([]byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ping = fn
}

func (s *fakeSocket) Pong(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pongs = append(s.pongs, data)
	return nil
}

func (s *fakeSocket) Close(code int, reason string) error {
	s.mu.Lock()
	s.closeCode = code
	s.mu.Unlock()
	s.finish(&websocket.CloseError{Code: code, Text: reason})
	return nil
}

func (s *fakeSocket) Abort() error {
	s.mu.Lock()
	s.aborted = true
	s.mu.Unlock()
	s.finish(io.ErrUnexpectedEOF)
	return nil
}

// serverClose simulates the relay closing the socket with code.
func (s *fakeSocket) serverClose(code int) {
	s.finish(&websocket.CloseError{Code: code})
}

// serverPing simulates a ping frame arriving.
func (s *fakeSocket) serverPing(data string) {
	s.mu.Lock()
	fn := s.ping
	s.mu.Unlock()
	fn([]byte(data))
}

func (s *fakeSocket) finish(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.readErr = err
		s.mu.Unlock()
		close(s.done)
	})
}

func (s *fakeSocket) snapshot() (code int, aborted bool, pongs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCode, s.aborted, len(s.pongs)
}

type fakeDialer struct {
	sockets chan *fakeSocket

	mu    sync.Mutex
	errs  []error // returned, in order, before any success
	fail  error   // returned forever when set
	dials int
}

func newFakeDialer(errs ...error) *fakeDialer {
	return &fakeDialer{sockets: make(chan *fakeSocket, 16), errs: errs}
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (relay.Socket, error) {
	d.mu.Lock()
	d.dials++
	if d.fail != nil {
		err := d.fail
		d.mu.Unlock()
		return nil, err
	}
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		d.mu.Unlock()
		return nil, err
	}
	d.mu.Unlock()

	s := newFakeSocket()
	d.sockets <- s
	return s, nil
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

type loggedEvent struct {
	kind  string
	event any
}

type eventLog struct {
	mu     sync.Mutex
	events []loggedEvent
}

func (l *eventLog) record(kind string, event any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, loggedEvent{kind, event})
}

func (l *eventLog) count(kind string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.kind == kind {
			n++
		}
	}
	return n
}
