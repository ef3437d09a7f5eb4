package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"linkmgr/internal/crypto"
	"linkmgr/internal/domain"
	"linkmgr/internal/metrics"
	"linkmgr/internal/protocol/sealed"
	"linkmgr/internal/relay"
	"linkmgr/internal/store"
)

// DefaultScheme is the channel URL scheme.
const DefaultScheme = "wss"

// Config configures a Manager.
type Config struct {
	// Handler receives plaintext requests and storage snapshots. Required.
	Handler domain.Handler
	// Store restores a previous session store. When nil a fresh store is
	// generated for LinkURL and persisted immediately.
	Store   *store.SessionStore
	LinkURL string
	Scheme  string
	Logger  zerolog.Logger

	Dialer           relay.Dialer
	HeartbeatTimeout time.Duration
	BackoffCap       time.Duration
	HandshakeTimeout time.Duration

	// Now stamps lastUsed; defaults to time.Now.
	Now func() time.Time
}

// Manager composes the session store, the relay channel and the sealed
// request pipeline.
type Manager struct {
	handler domain.Handler
	events  domain.SocketEventHandler
	log     zerolog.Logger
	now     func() time.Time

	store *store.SessionStore
	conn  *relay.Conn
	url   string
}

var _ domain.Channel = (*Manager)(nil)

// New builds a Manager from cfg. The channel is not opened until Connect.
func New(cfg Config) (*Manager, error) {
	if cfg.Handler == nil {
		return nil, errors.New("manager: handler is required")
	}
	if cfg.Scheme == "" {
		cfg.Scheme = DefaultScheme
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	fresh := cfg.Store == nil
	st := cfg.Store
	if fresh {
		var err error
		if st, err = store.Generate(cfg.LinkURL); err != nil {
			return nil, err
		}
	}

	m := &Manager{
		handler: cfg.Handler,
		log:     cfg.Logger.With().Str("component", "manager").Str("link_id", st.LinkID()).Logger(),
		now:     cfg.Now,
		store:   st,
		url:     relay.ChannelURL(cfg.Scheme, st.LinkURL(), st.LinkID()),
	}
	m.events, _ = cfg.Handler.(domain.SocketEventHandler)
	m.conn = relay.New(relay.Config{
		URL:              m.url,
		Dialer:           cfg.Dialer,
		Dispatch:         m.dispatch,
		OnEvent:          m.onSocketEvent,
		Logger:           cfg.Logger,
		HeartbeatTimeout: cfg.HeartbeatTimeout,
		BackoffCap:       cfg.BackoffCap,
		HandshakeTimeout: cfg.HandshakeTimeout,
	})

	if fresh {
		st.Transact(m.persistLocked)
	} else {
		metrics.SetSessions(st.Len())
	}
	return m, nil
}

// Restore builds a Manager from storage produced by an earlier
// OnStorageUpdate. Malformed storage fails with store.ErrSerialization.
func Restore(serialized string, cfg Config) (*Manager, error) {
	st, err := store.Deserialize(serialized)
	if err != nil {
		return nil, err
	}
	cfg.Store = st
	return New(cfg)
}

// LinkID returns the channel identifier.
func (m *Manager) LinkID() string { return m.store.LinkID() }

// ChannelURL returns the URL the channel connects to.
func (m *Manager) ChannelURL() string { return m.url }

// RequestPublicKey returns the key requests must be sealed to.
func (m *Manager) RequestPublicKey() domain.PublicKey { return m.store.RequestPublicKey() }

// AddSession stores session, replacing any session with the same identity.
func (m *Manager) AddSession(session domain.LinkSession) error {
	if err := store.Validate(session); err != nil {
		return err
	}
	m.store.Transact(func() {
		m.store.Add(session)
		m.persistLocked()
	})
	return nil
}

// GetSession returns the session for network, actor and permission.
func (m *Manager) GetSession(network domain.ChainID, actor, permission domain.Name) (domain.LinkSession, bool) {
	return m.store.Get(network, actor, permission)
}

// Sessions returns the stored sessions in order.
func (m *Manager) Sessions() []domain.LinkSession { return m.store.Sessions() }

// RemoveSession deletes the session sharing session's identity and reports
// whether one existed.
func (m *Manager) RemoveSession(session domain.LinkSession) bool {
	var removed bool
	m.store.Transact(func() {
		removed = m.store.Remove(session)
		m.persistLocked()
	})
	return removed
}

// ClearSessions removes every session.
func (m *Manager) ClearSessions() {
	m.store.Transact(func() {
		m.store.Clear()
		m.persistLocked()
	})
}

// UpdateLastUsed stamps the session using publicKey with the current time.
func (m *Manager) UpdateLastUsed(publicKey domain.PublicKey) bool {
	var updated bool
	m.store.Transact(func() {
		if updated = m.store.UpdateLastUsed(publicKey, m.now()); updated {
			m.persistLocked()
		}
	})
	return updated
}

// Save hands the current storage to the host.
func (m *Manager) Save() {
	m.store.Transact(m.persistLocked)
}

// Connect opens the relay channel; see relay.Conn.Connect.
func (m *Manager) Connect(ctx context.Context) error { return m.conn.Connect(ctx) }

// Disconnect closes the relay channel.
func (m *Manager) Disconnect() error { return m.conn.Disconnect() }

// Ready reports whether the channel is open.
func (m *Manager) Ready() bool { return m.conn.Ready() }

// State returns the channel state.
func (m *Manager) State() relay.State { return m.conn.State() }

// HandleRequest authenticates and delivers one sealed request frame.
//
// Steps:
//  1. Decode the sealed message frame.
//  2. Unseal its ciphertext with the request key and the sender key.
//  3. Reject the request unless a session uses the sender key.
//  4. Refresh that session's lastUsed stamp and persist the store.
//  5. Hand the plaintext to the host and return it.
func (m *Manager) HandleRequest(frame []byte) (string, error) {
	start := time.Now()
	payload, result, err := m.handle(frame)
	metrics.RecordRequest(result, time.Since(start))
	return payload, err
}

func (m *Manager) handle(frame []byte) (string, string, error) {
	env, err := sealed.DecodeEnvelope(frame)
	if err != nil {
		m.log.Warn().Err(err).Int("size", len(frame)).Msg("malformed request")
		return "", metrics.ResultMalformed, err
	}

	payload, err := sealed.Unseal(env.Ciphertext, m.store.RequestKey(), env.From, env.Nonce)
	if err != nil {
		m.log.Warn().Err(err).Str("sender", crypto.Fingerprint(env.From)).Msg("unseal failed")
		return "", metrics.ResultDecryptError, err
	}

	var known bool
	m.store.Transact(func() {
		if known = m.store.UpdateLastUsed(env.From, m.now()); known {
			m.persistLocked()
		}
	})
	if !known {
		m.log.Warn().Str("sender", crypto.Fingerprint(env.From)).Msg("request from unknown sender")
		return "", metrics.ResultUnknownSender, &UnknownSenderError{PublicKey: env.From}
	}

	m.handler.OnIncomingRequest(payload)
	return payload, metrics.ResultOK, nil
}

func (m *Manager) dispatch(frame []byte) error {
	if _, err := m.HandleRequest(frame); err != nil {
		return fmt.Errorf("handle request: %w", err)
	}
	return nil
}

func (m *Manager) onSocketEvent(kind string, event any) {
	metrics.RecordChannelEvent(kind)
	if kind == relay.EventBackoff {
		metrics.RecordReconnect()
	}
	if m.events != nil {
		m.events.OnSocketEvent(kind, event)
	}
}

func (m *Manager) persistLocked() {
	raw, err := m.store.Serialize()
	if err != nil {
		m.log.Error().Err(err).Msg("serialize storage")
		return
	}
	metrics.SetSessions(m.store.Len())
	m.handler.OnStorageUpdate(raw)
}
