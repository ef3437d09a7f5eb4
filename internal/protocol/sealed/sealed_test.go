package sealed_test

import (
	"errors"
	"testing"

	"linkmgr/internal/crypto"
	"linkmgr/internal/domain"
	"linkmgr/internal/protocol/sealed"
)

func keyPair(t *testing.T) (domain.PrivateKey, domain.PublicKey) {
	t.Helper()
	priv, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	return priv, crypto.PublicKeyOf(priv)
}

func TestSealUnseal_Hello(t *testing.T) {
	local, localPub := keyPair(t)
	sender, senderPub := keyPair(t)

	env, err := sealed.Seal("hello", sender, localPub, 42)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if env.From != senderPub || env.Nonce != 42 {
		t.Fatalf("unexpected envelope header %+v", env)
	}

	got, err := sealed.Unseal(env.Ciphertext, local, senderPub, 42)
	if err != nil {
		t.Fatalf("Unseal: %v", err)
	}
	if got != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}

	// Deterministic for identical inputs.
	again, err := sealed.Unseal(env.Ciphertext, local, senderPub, 42)
	if err != nil || again != got {
		t.Fatalf("second unseal differed: %q, %v", again, err)
	}
}

func TestDeriveKey_MatchesOnBothSides(t *testing.T) {
	local, localPub := keyPair(t)
	sender, senderPub := keyPair(t)

	a, err := sealed.DeriveKey(local, senderPub, 7)
	if err != nil {
		t.Fatalf("DeriveKey(local): %v", err)
	}
	b, err := sealed.DeriveKey(sender, localPub, 7)
	if err != nil {
		t.Fatalf("DeriveKey(sender): %v", err)
	}
	if a != b {
		t.Fatal("derived keys differ")
	}
	c, err := sealed.DeriveKey(local, senderPub, 8)
	if err != nil {
		t.Fatalf("DeriveKey(nonce 8): %v", err)
	}
	if a == c {
		t.Fatal("nonce must change the derived key")
	}
}

func TestUnseal_RejectsBadLength(t *testing.T) {
	local, _ := keyPair(t)
	_, senderPub := keyPair(t)

	for _, n := range []int{0, 1, 15, 17} {
		if _, err := sealed.Unseal(make([]byte, n), local, senderPub, 1); !errors.Is(err, sealed.ErrDecryption) {
			t.Fatalf("len %d: want ErrDecryption, got %v", n, err)
		}
	}
}

func TestUnseal_RejectsBadPadding(t *testing.T) {
	local, localPub := keyPair(t)
	sender, senderPub := keyPair(t)

	// The first block alone decrypts to "0123456789abcdef", whose final
	// byte is not a valid padding length.
	env, err := sealed.Seal("0123456789abcdefXYZ", sender, localPub, 9)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if len(env.Ciphertext) != 32 {
		t.Fatalf("expected two blocks, got %d bytes", len(env.Ciphertext))
	}
	if _, err := sealed.Unseal(env.Ciphertext[:16], local, senderPub, 9); !errors.Is(err, sealed.ErrDecryption) {
		t.Fatalf("want ErrDecryption, got %v", err)
	}
}

func TestEnvelope_EncodeDecode(t *testing.T) {
	_, localPub := keyPair(t)
	sender, _ := keyPair(t)

	env, err := sealed.Seal("payload", sender, localPub, 1<<40)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	frame := sealed.EncodeEnvelope(env)

	got, err := sealed.DecodeEnvelope(frame)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if got.From != env.From || got.Nonce != env.Nonce || got.Checksum != env.Checksum ||
		string(got.Ciphertext) != string(env.Ciphertext) {
		t.Fatal("decoded envelope differs")
	}

	if _, err := sealed.DecodeEnvelope(frame[:len(frame)-1]); !errors.Is(err, sealed.ErrMalformedMessage) {
		t.Fatalf("truncated: want ErrMalformedMessage, got %v", err)
	}
	if _, err := sealed.DecodeEnvelope(append(frame, 0)); !errors.Is(err, sealed.ErrMalformedMessage) {
		t.Fatalf("trailing: want ErrMalformedMessage, got %v", err)
	}
	bad := append([]byte(nil), frame...)
	bad[0] = 2
	if _, err := sealed.DecodeEnvelope(bad); !errors.Is(err, sealed.ErrMalformedMessage) {
		t.Fatalf("key type: want ErrMalformedMessage, got %v", err)
	}
}

func TestEncodeEnvelope_Layout(t *testing.T) {
	env := domain.SealedEnvelope{
		From:       domain.PublicKey{0x02, 0xaa},
		Nonce:      0x0102030405060708,
		Ciphertext: make([]byte, 32),
		Checksum:   0xdeadbeef,
	}
	frame := sealed.EncodeEnvelope(env)
	if want := 1 + domain.PublicKeySize + 8 + 1 + 32 + 4; len(frame) != want {
		t.Fatalf("frame is %d bytes, want %d", len(frame), want)
	}
	if frame[0] != 0 || frame[1] != 0x02 || frame[2] != 0xaa {
		t.Fatalf("unexpected key prefix % x", frame[:3])
	}
	if frame[1+domain.PublicKeySize] != 0x08 {
		t.Fatal("nonce must be little endian")
	}
	if frame[1+domain.PublicKeySize+8] != 32 {
		t.Fatal("ciphertext length prefix mismatch")
	}
}
