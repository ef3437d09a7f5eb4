package manager_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"linkmgr/internal/crypto"
	"linkmgr/internal/domain"
	"linkmgr/internal/protocol/sealed"
	"linkmgr/internal/services/manager"
	"linkmgr/internal/store"
)

var (
	network   = domain.ChainID{0x2a, 0x02, 0xa0, 0x05}
	fixedTime = time.UnixMilli(1700000000000)
)

type recorder struct {
	mu       sync.Mutex
	requests []string
	storage  []string
	events   []string
}

func (r *recorder) OnIncomingRequest(payload string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, payload)
}

func (r *recorder) OnStorageUpdate(storage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage = append(r.storage, storage)
}

func (r *recorder) OnSocketEvent(kind string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind)
}

func (r *recorder) counts() (requests, storage int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests), len(r.storage)
}

func (r *recorder) lastStorage() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.storage[len(r.storage)-1]
}

func newManager(t *testing.T, linkURL string) (*manager.Manager, *recorder) {
	t.Helper()
	rec := &recorder{}
	m, err := manager.New(manager.Config{
		Handler: rec,
		LinkURL: linkURL,
		Now:     func() time.Time { return fixedTime },
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m, rec
}

// sender returns a device key pair with a session registered on m.
func sender(t *testing.T, m *manager.Manager, actor string) (domain.PrivateKey, domain.LinkSession) {
	t.Helper()
	priv, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	s := domain.NewLinkSession(network, domain.Name(actor), "active", "app", crypto.PublicKeyOf(priv), time.UnixMilli(1000))
	if err := m.AddSession(s); err != nil {
		t.Fatalf("add session: %v", err)
	}
	return priv, s
}

func sealTo(t *testing.T, m *manager.Manager, priv domain.PrivateKey, msg string) []byte {
	t.Helper()
	env, err := sealed.Seal(msg, priv, m.RequestPublicKey(), 42)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	return sealed.EncodeEnvelope(env)
}

func TestNew_PersistsFreshStorage(t *testing.T) {
	m, rec := newManager(t, "")
	if _, n := rec.counts(); n != 1 {
		t.Fatalf("storage updates = %d, want 1", n)
	}
	st, err := store.Deserialize(rec.lastStorage())
	if err != nil {
		t.Fatalf("fresh storage unreadable: %v", err)
	}
	if st.LinkID() != m.LinkID() || st.LinkURL() != store.DefaultLinkURL {
		t.Fatal("persisted identity mismatch")
	}
	if m.ChannelURL() != "wss://cb.anchor.link/"+m.LinkID() {
		t.Fatalf("channel url = %q", m.ChannelURL())
	}
	if m.Ready() {
		t.Fatal("manager must start disconnected")
	}
}

func TestNew_RequiresHandler(t *testing.T) {
	if _, err := manager.New(manager.Config{}); err == nil {
		t.Fatal("expected error without handler")
	}
}

func TestRestore(t *testing.T) {
	m, rec := newManager(t, "relay.test")
	_, s := sender(t, m, "alice")

	rec2 := &recorder{}
	restored, err := manager.Restore(rec.lastStorage(), manager.Config{Handler: rec2})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, n := rec2.counts(); n != 0 {
		t.Fatal("restore must not persist")
	}
	if restored.LinkID() != m.LinkID() || restored.RequestPublicKey() != m.RequestPublicKey() {
		t.Fatal("channel identity not restored")
	}
	got, ok := restored.GetSession(network, "alice", "active")
	if !ok || got != s {
		t.Fatalf("session not restored: %+v", got)
	}

	if _, err := manager.Restore(`{"linkId":"x"}`, manager.Config{Handler: rec2}); !errors.Is(err, store.ErrSerialization) {
		t.Fatalf("want ErrSerialization, got %v", err)
	}
}

func TestAddSession_UpsertsAndPersists(t *testing.T) {
	m, rec := newManager(t, "")
	_, s := sender(t, m, "alice")
	_, before := rec.counts()

	s2 := s
	s2.PublicKey = crypto.PublicKeyOf(domain.PrivateKey{7})
	if err := m.AddSession(s2); err != nil {
		t.Fatalf("add: %v", err)
	}
	sessions := m.Sessions()
	if len(sessions) != 1 || sessions[0].PublicKey != s2.PublicKey {
		t.Fatalf("want single session with replaced key, got %+v", sessions)
	}
	if _, after := rec.counts(); after != before+1 {
		t.Fatal("add must persist")
	}

	bad := s
	bad.Actor = ""
	if err := m.AddSession(bad); !errors.Is(err, store.ErrInvalidSession) {
		t.Fatalf("want ErrInvalidSession, got %v", err)
	}
}

func TestRemoveAndClear_Persist(t *testing.T) {
	m, rec := newManager(t, "")
	_, a := sender(t, m, "alice")
	sender(t, m, "bob")
	_, before := rec.counts()

	copyOfA, err := store.Deserialize(rec.lastStorage())
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	restoredA, _ := copyOfA.Get(network, "alice", "active")
	if !m.RemoveSession(restoredA) {
		t.Fatal("remove by deserialized copy failed")
	}
	if _, ok := m.GetSession(network, a.Actor, a.Permission); ok {
		t.Fatal("session still present")
	}

	m.ClearSessions()
	if len(m.Sessions()) != 0 {
		t.Fatal("clear left sessions")
	}
	if _, after := rec.counts(); after != before+2 {
		t.Fatalf("storage updates = %d, want %d", after, before+2)
	}
}

func TestUpdateLastUsed(t *testing.T) {
	m, rec := newManager(t, "")
	_, s := sender(t, m, "alice")
	_, before := rec.counts()

	if m.UpdateLastUsed(crypto.PublicKeyOf(domain.PrivateKey{9})) {
		t.Fatal("unknown key must not update")
	}
	if _, n := rec.counts(); n != before {
		t.Fatal("failed update must not persist")
	}
	if !m.UpdateLastUsed(s.PublicKey) {
		t.Fatal("expected update")
	}
	got, _ := m.GetSession(network, "alice", "active")
	if !got.LastUsed.Time().Equal(fixedTime) || got.Key() != s.Key() {
		t.Fatalf("unexpected session %+v", got)
	}
}

func TestHandleRequest_Delivers(t *testing.T) {
	m, rec := newManager(t, "")
	priv, _ := sender(t, m, "alice")
	_, before := rec.counts()

	got, err := m.HandleRequest(sealTo(t, m, priv, "hello"))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got != "hello" {
		t.Fatalf("payload = %q", got)
	}
	requests, storage := rec.counts()
	if requests != 1 || rec.requests[0] != "hello" {
		t.Fatal("host did not receive the request")
	}
	if storage != before+1 {
		t.Fatal("accepted request must persist")
	}
	s, _ := m.GetSession(network, "alice", "active")
	if !s.LastUsed.Time().Equal(fixedTime) {
		t.Fatalf("lastUsed = %v", s.LastUsed.Time())
	}
}

func TestHandleRequest_UnknownSender(t *testing.T) {
	m, rec := newManager(t, "")
	_, s := sender(t, m, "alice")
	_, before := rec.counts()

	stranger, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	_, err = m.HandleRequest(sealTo(t, m, stranger, "hello"))
	var unknown *manager.UnknownSenderError
	if !errors.Is(err, manager.ErrUnknownSender) || !errors.As(err, &unknown) {
		t.Fatalf("want UnknownSenderError, got %v", err)
	}
	if unknown.PublicKey != crypto.PublicKeyOf(stranger) {
		t.Fatal("error must name the sender")
	}
	requests, storage := rec.counts()
	if requests != 0 || storage != before {
		t.Fatal("unknown sender must not reach the host or storage")
	}
	got, _ := m.GetSession(network, "alice", "active")
	if got.LastUsed != s.LastUsed {
		t.Fatal("lastUsed changed")
	}
}

func TestHandleRequest_BadFrames(t *testing.T) {
	m, _ := newManager(t, "")
	priv, _ := sender(t, m, "alice")

	if _, err := m.HandleRequest([]byte{1, 2, 3}); !errors.Is(err, sealed.ErrMalformedMessage) {
		t.Fatalf("want ErrMalformedMessage, got %v", err)
	}

	env, err := sealed.Seal("hello", priv, m.RequestPublicKey(), 7)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	env.Ciphertext = env.Ciphertext[:len(env.Ciphertext)-1]
	if _, err := m.HandleRequest(sealed.EncodeEnvelope(env)); !errors.Is(err, sealed.ErrDecryption) {
		t.Fatalf("want ErrDecryption, got %v", err)
	}
}

func TestChannel_EndToEnd(t *testing.T) {
	conns := make(chan *websocket.Conn, 1)
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- c
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	m, rec := newManager(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	priv, _ := sender(t, m, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer m.Disconnect()

	var relaySide *websocket.Conn
	select {
	case relaySide = <-conns:
	case <-ctx.Done():
		t.Fatal("relay saw no connection")
	}

	stranger, _ := crypto.GeneratePrivateKey()
	for _, frame := range [][]byte{
		sealTo(t, m, stranger, "ignored"),
		sealTo(t, m, priv, "sign this"),
	} {
		if err := relaySide.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	for {
		if n, _ := rec.counts(); n == 1 {
			break
		}
		select {
		case <-ctx.Done():
			t.Fatal("request never delivered")
		case <-time.After(5 * time.Millisecond):
		}
	}
	rec.mu.Lock()
	got := rec.requests[0]
	rec.mu.Unlock()
	if got != "sign this" {
		t.Fatalf("payload = %q", got)
	}
	if !m.Ready() {
		t.Fatal("rejected request must not close the channel")
	}
}

func TestAddSession_OnlyRestorableSessions(t *testing.T) {
	m, rec := newManager(t, "")
	pk := crypto.PublicKeyOf(domain.PrivateKey{4})

	for _, s := range []domain.LinkSession{
		domain.NewLinkSession(network, "Alice", "active", "app", pk, fixedTime),
		domain.NewLinkSession(network, "alice", "active", "My App", pk, fixedTime),
	} {
		if err := m.AddSession(s); !errors.Is(err, store.ErrInvalidSession) {
			t.Fatalf("%+v: want ErrInvalidSession, got %v", s, err)
		}
	}

	s := domain.NewLinkSession(network, "alice.gm", "active", "myapp.x", pk, fixedTime)
	if err := m.AddSession(s); err != nil {
		t.Fatalf("add: %v", err)
	}
	restored, err := manager.Restore(rec.lastStorage(), manager.Config{Handler: &recorder{}})
	if err != nil {
		t.Fatalf("storage written by AddSession must restore: %v", err)
	}
	if got := restored.Sessions(); len(got) != 1 || got[0] != s {
		t.Fatalf("restored %+v", got)
	}
}

func TestSharedStore_SnapshotsFollowMutationOrder(t *testing.T) {
	for round := 0; round < 20; round++ {
		st, err := store.Generate("")
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		rec := &recorder{}
		var managers []*manager.Manager
		for i := 0; i < 2; i++ {
			m, err := manager.New(manager.Config{Handler: rec, Store: st})
			if err != nil {
				t.Fatalf("new manager: %v", err)
			}
			managers = append(managers, m)
		}

		var wg sync.WaitGroup
		for i, m := range managers {
			for j := 0; j < 20; j++ {
				wg.Add(1)
				go func(m *manager.Manager, i, j int) {
					defer wg.Done()
					actor := domain.Name([]byte{'m', byte('a' + i), 'x', byte('a' + j)})
					pk := crypto.PublicKeyOf(domain.PrivateKey{byte(i*20 + j + 1)})
					if err := m.AddSession(domain.NewLinkSession(network, actor, "active", "app", pk, fixedTime)); err != nil {
						t.Errorf("add: %v", err)
					}
				}(m, i, j)
			}
		}
		wg.Wait()

		last, err := store.Deserialize(rec.lastStorage())
		if err != nil {
			t.Fatalf("deserialize: %v", err)
		}
		if st.Len() != 40 || last.Len() != st.Len() {
			t.Fatalf("round %d: last snapshot has %d sessions, store has %d", round, last.Len(), st.Len())
		}
	}
}
