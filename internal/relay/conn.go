package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"linkmgr/internal/domain"
)

// Config configures a Conn.
type Config struct {
	// URL is the full channel URL, see ChannelURL.
	URL    string
	Dialer Dialer
	// Dispatch receives every inbound data frame, one at a time. Returned
	// errors and panics are reported and never close the channel.
	Dispatch func(frame []byte) error
	// OnEvent observes socket diagnostics; see the Event constants.
	OnEvent func(kind string, event any)
	Logger  zerolog.Logger

	HeartbeatTimeout time.Duration
	BackoffCap       time.Duration
	HandshakeTimeout time.Duration
}

// Conn is the client side of a relay channel.
type Conn struct {
	cfg Config
	log zerolog.Logger

	mu         sync.Mutex
	state      State
	gen        uint64 // identifies the current socket / dial attempt
	sock       Socket
	retries    int
	dialCancel context.CancelFunc
	waiters    []chan error

	timer     *time.Timer
	timerKind string
	timerSeq  uint64
}

var _ domain.Channel = (*Conn)(nil)

// New returns a disconnected Conn. Zero durations select the defaults.
func New(cfg Config) *Conn {
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = DefaultBackoffCap
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.Dialer == nil {
		cfg.Dialer = WebsocketDialer{HandshakeTimeout: cfg.HandshakeTimeout}
	}
	return &Conn{
		cfg: cfg,
		log: cfg.Logger.With().Str("component", "relay").Str("url", cfg.URL).Logger(),
	}
}

// URL returns the channel URL.
func (c *Conn) URL() string { return c.cfg.URL }

// State returns the current state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Ready reports whether the channel is open.
func (c *Conn) Ready() bool { return c.State() == Connected }

// Retries returns the current reconnect counter.
func (c *Conn) Retries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retries
}

// Connect opens the channel and waits until it is open, a fatal error
// occurs, Disconnect is called or ctx is done. Transient failures are
// retried in the background meanwhile. Leaving early through ctx does not
// stop those retries; call Disconnect for that.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case Connected:
		c.mu.Unlock()
		return nil
	case Disconnected:
		c.retries = 0
		c.dialLocked()
	}
	ch := make(chan error, 1)
	c.waiters = append(c.waiters, ch)
	c.mu.Unlock()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		c.mu.Lock()
		for i, w := range c.waiters {
			if w == ch {
				c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
				break
			}
		}
		c.mu.Unlock()
		return ctx.Err()
	}
}

// Disconnect closes the channel with a normal close code and cancels every
// pending timer and dial. It is safe in any state.
func (c *Conn) Disconnect() error {
	c.mu.Lock()
	prev := c.state
	c.stopTimerLocked()
	c.gen++
	sock := c.sock
	c.sock = nil
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	c.state = Disconnected
	c.retries = 0
	c.settleLocked(ErrDisconnected)
	c.mu.Unlock()

	if prev == Disconnected {
		return nil
	}
	if sock != nil {
		if err := sock.Close(CloseNormal, ""); err != nil {
			c.log.Debug().Err(err).Msg("close socket")
		}
	}
	c.log.Info().Str("from", prev.String()).Msg("disconnected")
	c.notify(notice{EventClose, CloseEvent{Code: CloseNormal, Reconnect: false}})
	return nil
}

func (c *Conn) dialLocked() {
	c.gen++
	gen := c.gen
	c.state = Connecting
	ctx, cancel := context.WithCancel(context.Background())
	c.dialCancel = cancel
	go c.dial(ctx, cancel, gen)
}

func (c *Conn) dial(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	defer cancel()
	sock, err := c.cfg.Dialer.Dial(ctx, c.cfg.URL)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		if sock != nil {
			_ = sock.Close(CloseNormal, "")
		}
		return
	}
	c.dialCancel = nil
	var out []notice
	if err != nil {
		out = c.dialFailedLocked(err)
	} else {
		out = c.openLocked(sock, gen)
	}
	c.mu.Unlock()
	c.notify(out...)

	if err == nil {
		c.readLoop(sock, gen)
	}
}

func (c *Conn) openLocked(sock Socket, gen uint64) []notice {
	c.sock = sock
	c.state = Connected
	c.retries = 0
	sock.SetPingHandler(func(data []byte) { c.onPing(gen, data) })
	c.armHeartbeatLocked()
	c.settleLocked(nil)
	c.log.Info().Msg("channel open")
	return []notice{{EventOpen, c.cfg.URL}}
}

func (c *Conn) dialFailedLocked(err error) []notice {
	cerr := &ConnectionError{URL: c.cfg.URL, Err: err, Transient: IsTransient(err)}
	out := []notice{{EventError, cerr}}
	if cerr.Transient {
		c.log.Debug().Err(err).Msg("dial failed, retrying")
		return append(out, c.scheduleReconnectLocked())
	}
	c.log.Error().Err(err).Msg("dial failed")
	c.state = Disconnected
	c.settleLocked(cerr)
	return out
}

func (c *Conn) readLoop(sock Socket, gen uint64) {
	for {
		frame, err := sock.ReadFrame()
		if err != nil {
			c.onClose(gen, err)
			return
		}
		if !c.current(gen) {
			return
		}
		c.notify(notice{EventMessage, frame})
		c.dispatch(frame)
	}
}

func (c *Conn) dispatch(frame []byte) {
	if c.cfg.Dispatch == nil {
		return
	}
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("relay: dispatch panic: %v", r)
			}
		}()
		return c.cfg.Dispatch(frame)
	}()
	if err != nil {
		c.log.Warn().Err(err).Msg("dispatch failed")
		c.notify(notice{EventError, err})
	}
}

func (c *Conn) onClose(gen uint64, err error) {
	code, reason := closeStatus(err)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.sock = nil
	out := []notice{{EventClose, CloseEvent{Code: code, Reason: reason, Reconnect: true}}}
	out = append(out, c.scheduleReconnectLocked())
	c.mu.Unlock()

	c.log.Info().Int("code", code).Str("reason", reason).Msg("channel closed")
	c.notify(out...)
}

func (c *Conn) onPing(gen uint64, data []byte) {
	c.mu.Lock()
	if gen != c.gen || c.state != Connected {
		c.mu.Unlock()
		return
	}
	c.retries = 0
	c.armHeartbeatLocked()
	sock := c.sock
	c.mu.Unlock()

	if err := sock.Pong(data); err != nil {
		c.log.Debug().Err(err).Msg("pong")
	}
	c.notify(notice{EventPing, data})
}

func (c *Conn) scheduleReconnectLocked() notice {
	wait := Backoff(c.retries, c.cfg.BackoffCap)
	c.retries++
	c.state = BackoffWait
	c.gen++
	c.sock = nil
	c.armLocked("backoff", wait, c.retryLocked)
	c.log.Debug().Int("retry", c.retries).Dur("wait", wait).Msg("reconnect scheduled")
	return notice{EventBackoff, BackoffEvent{Retry: c.retries, Wait: wait}}
}

func (c *Conn) retryLocked() []notice {
	if c.state != BackoffWait {
		return nil
	}
	c.dialLocked()
	return nil
}

func (c *Conn) armHeartbeatLocked() {
	c.armLocked("heartbeat", c.cfg.HeartbeatTimeout, c.heartbeatExpiredLocked)
}

func (c *Conn) heartbeatExpiredLocked() []notice {
	if c.state != Connected || c.sock == nil {
		return nil
	}
	c.state = Closing
	if err := c.sock.Abort(); err != nil {
		c.log.Debug().Err(err).Msg("abort socket")
	}
	c.log.Warn().Dur("timeout", c.cfg.HeartbeatTimeout).Msg("heartbeat expired")
	return []notice{{EventHeartbeatTimeout, c.cfg.HeartbeatTimeout}}
}

// armLocked replaces the pending timer with one running fn after d.
func (c *Conn) armLocked(kind string, d time.Duration, fn func() []notice) {
	c.stopTimerLocked()
	seq := c.timerSeq
	c.timerKind = kind
	c.timer = time.AfterFunc(d, func() {
		c.mu.Lock()
		if seq != c.timerSeq {
			c.mu.Unlock()
			return
		}
		c.timer = nil
		c.timerKind = ""
		out := fn()
		c.mu.Unlock()
		c.notify(out...)
	})
}

func (c *Conn) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerKind = ""
	c.timerSeq++
}

func (c *Conn) settleLocked(err error) {
	for _, w := range c.waiters {
		w <- err
	}
	c.waiters = nil
}

func (c *Conn) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

func (c *Conn) notify(out ...notice) {
	if c.cfg.OnEvent == nil {
		return
	}
	for _, n := range out {
		c.cfg.OnEvent(n.kind, n.event)
	}
}
