package store

import (
	"container/list"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"linkmgr/internal/crypto"
	"linkmgr/internal/domain"
)

// DefaultLinkURL is the relay host used when none is configured.
const DefaultLinkURL = "cb.anchor.link"

var (
	// ErrSerialization is returned when persisted storage cannot be restored.
	ErrSerialization = errors.New("store: invalid serialized storage")
	// ErrInvalidSession is returned for sessions missing identity fields.
	ErrInvalidSession = errors.New("store: invalid session")
)

// SessionStore is the ordered set of link sessions known to a manager,
// together with the channel identity (link id, relay host) and the static
// request key used to unseal inbound messages.
//
// Sessions are unique by (network, actor, permission, name). All methods
// are safe for concurrent use.
type SessionStore struct {
	linkID     string
	linkURL    string
	requestKey domain.PrivateKey

	// commit serializes mutate-then-persist sequences across every holder
	// of the store; see Transact.
	commit sync.Mutex

	mu    sync.Mutex
	order *list.List // of domain.LinkSession, insertion order
	index map[domain.SessionKey]*list.Element
}

// New returns a store with the given channel identity and sessions.
// Sessions sharing an identity key collapse to the last one given.
func New(linkID, linkURL string, requestKey domain.PrivateKey, sessions ...domain.LinkSession) *SessionStore {
	s := &SessionStore{
		linkID:     linkID,
		linkURL:    linkURL,
		requestKey: requestKey,
		order:      list.New(),
		index:      make(map[domain.SessionKey]*list.Element),
	}
	for _, sess := range sessions {
		s.addLocked(sess)
	}
	return s
}

// Generate returns an empty store with a fresh link id and request key.
// An empty linkURL selects DefaultLinkURL.
func Generate(linkURL string) (*SessionStore, error) {
	if linkURL == "" {
		linkURL = DefaultLinkURL
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate request key: %w", err)
	}
	return New(uuid.NewString(), linkURL, key), nil
}

// LinkID returns the channel identifier.
func (s *SessionStore) LinkID() string { return s.linkID }

// LinkURL returns the relay host.
func (s *SessionStore) LinkURL() string { return s.linkURL }

// RequestKey returns the static private key sealed requests are addressed to.
func (s *SessionStore) RequestKey() domain.PrivateKey { return s.requestKey }

// RequestPublicKey returns the public half of RequestKey.
func (s *SessionStore) RequestPublicKey() domain.PublicKey { return crypto.PublicKeyOf(s.requestKey) }

// Transact runs fn while holding the store's commit lock. Callers that pair
// a mutation with persisting the resulting snapshot do both inside fn, so
// snapshots from every user of the store are delivered in mutation order.
// fn may call any other SessionStore method but must not call Transact.
func (s *SessionStore) Transact(fn func()) {
	s.commit.Lock()
	defer s.commit.Unlock()
	fn()
}

// Add inserts session, replacing in place any session with the same
// identity key.
func (s *SessionStore) Add(session domain.LinkSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(session)
}

// Get returns the first session matching network, actor and permission.
func (s *SessionStore) Get(network domain.ChainID, actor, permission domain.Name) (domain.LinkSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for e := s.order.Front(); e != nil; e = e.Next() {
		sess := e.Value.(domain.LinkSession)
		if sess.Network == network && sess.Actor == actor && sess.Permission == permission {
			return sess, true
		}
	}
	return domain.LinkSession{}, false
}

// GetByPublicKey returns the first session using publicKey.
func (s *SessionStore) GetByPublicKey(publicKey domain.PublicKey) (domain.LinkSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.findByPublicKeyLocked(publicKey); e != nil {
		return e.Value.(domain.LinkSession), true
	}
	return domain.LinkSession{}, false
}

// Has reports whether any session uses publicKey.
func (s *SessionStore) Has(publicKey domain.PublicKey) bool {
	_, ok := s.GetByPublicKey(publicKey)
	return ok
}

// UpdateLastUsed stamps the session using publicKey with now and moves it
// to the end of the ordering. It returns false, changing nothing, when no
// session uses publicKey.
func (s *SessionStore) UpdateLastUsed(publicKey domain.PublicKey, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.findByPublicKeyLocked(publicKey)
	if e == nil {
		return false
	}
	sess := e.Value.(domain.LinkSession)
	s.removeLocked(sess.Key())
	sess.LastUsed = domain.TimestampOf(now)
	s.addLocked(sess)
	return true
}

// Remove deletes the session with the same identity key as session.
// Only the identity fields of session are consulted.
func (s *SessionStore) Remove(session domain.LinkSession) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(session.Key())
}

// Clear removes every session.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order.Init()
	clear(s.index)
}

// Len returns the number of sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Sessions returns a copy of the sessions in store order.
func (s *SessionStore) Sessions() []domain.LinkSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionsLocked()
}

// Data returns the persisted form of the store.
func (s *SessionStore) Data() domain.StorageData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.StorageData{
		LinkID:     s.linkID,
		LinkURL:    s.linkURL,
		RequestKey: s.requestKey,
		Sessions:   s.sessionsLocked(),
	}
}

// Serialize encodes the store as JSON.
func (s *SessionStore) Serialize() (string, error) {
	b, err := json.Marshal(s.Data())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Deserialize restores a store produced by Serialize. Any missing or
// malformed field fails the whole restore with ErrSerialization.
func Deserialize(raw string) (*SessionStore, error) {
	var aux struct {
		LinkID     string                `json:"linkId"`
		LinkURL    string                `json:"linkUrl"`
		RequestKey *domain.PrivateKey    `json:"requestKey"`
		Sessions   *[]domain.LinkSession `json:"sessions"`
	}
	if err := json.Unmarshal([]byte(raw), &aux); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	switch {
	case aux.LinkID == "":
		return nil, fmt.Errorf("%w: missing linkId", ErrSerialization)
	case aux.LinkURL == "":
		return nil, fmt.Errorf("%w: missing linkUrl", ErrSerialization)
	case aux.RequestKey == nil || aux.RequestKey.IsZero():
		return nil, fmt.Errorf("%w: missing requestKey", ErrSerialization)
	case aux.Sessions == nil:
		return nil, fmt.Errorf("%w: missing sessions", ErrSerialization)
	}

	seen := make(map[domain.SessionKey]struct{}, len(*aux.Sessions))
	for i, sess := range *aux.Sessions {
		if err := Validate(sess); err != nil {
			return nil, fmt.Errorf("%w: session %d: %v", ErrSerialization, i, err)
		}
		if _, dup := seen[sess.Key()]; dup {
			return nil, fmt.Errorf("%w: session %d: duplicate identity", ErrSerialization, i)
		}
		seen[sess.Key()] = struct{}{}
	}
	return New(aux.LinkID, aux.LinkURL, *aux.RequestKey, *aux.Sessions...), nil
}

// Validate checks that session carries every identity field and a key, and
// that its names are ones Deserialize accepts.
func Validate(session domain.LinkSession) error {
	if session.Network.IsZero() {
		return fmt.Errorf("%w: missing network", ErrInvalidSession)
	}
	for _, f := range []struct {
		field string
		name  domain.Name
	}{
		{"actor", session.Actor},
		{"permission", session.Permission},
		{"name", session.Name},
	} {
		if f.name == "" {
			return fmt.Errorf("%w: missing %s", ErrInvalidSession, f.field)
		}
		if _, err := domain.ParseName(string(f.name)); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidSession, f.field, err)
		}
	}
	if session.PublicKey.IsZero() {
		return fmt.Errorf("%w: missing publicKey", ErrInvalidSession)
	}
	return nil
}

func (s *SessionStore) addLocked(session domain.LinkSession) {
	key := session.Key()
	if e, ok := s.index[key]; ok {
		e.Value = session
		return
	}
	s.index[key] = s.order.PushBack(session)
}

func (s *SessionStore) removeLocked(key domain.SessionKey) bool {
	e, ok := s.index[key]
	if !ok {
		return false
	}
	s.order.Remove(e)
	delete(s.index, key)
	return true
}

func (s *SessionStore) findByPublicKeyLocked(publicKey domain.PublicKey) *list.Element {
	for e := s.order.Front(); e != nil; e = e.Next() {
		if e.Value.(domain.LinkSession).PublicKey == publicKey {
			return e
		}
	}
	return nil
}

func (s *SessionStore) sessionsLocked() []domain.LinkSession {
	out := make([]domain.LinkSession, 0, s.order.Len())
	for e := s.order.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(domain.LinkSession))
	}
	return out
}
