package types

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/ripemd160"
)

// ErrInvalidKey is returned when a key string cannot be decoded.
var ErrInvalidKey = errors.New("invalid key")

const (
	// PublicKeySize is the length of a compressed secp256k1 point.
	PublicKeySize = 33
	// PrivateKeySize is the length of a secp256k1 scalar.
	PrivateKeySize = 32

	k1PublicPrefix  = "PUB_K1_"
	k1PrivatePrefix = "PVT_K1_"
	legacyPrefix    = "EOS"
	wifVersion      = 0x80
	checksumSize    = 4
)

// PublicKey is a compressed secp256k1 (K1) public key.
type PublicKey [PublicKeySize]byte

// ParsePublicKey decodes a PUB_K1_ or legacy EOS prefixed public key.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(s, k1PublicPrefix):
		data, err = decodeChecked(strings.TrimPrefix(s, k1PublicPrefix), "K1")
	case strings.HasPrefix(s, legacyPrefix):
		data, err = decodeChecked(strings.TrimPrefix(s, legacyPrefix), "")
	default:
		return pk, fmt.Errorf("%w: unknown public key format", ErrInvalidKey)
	}
	if err != nil {
		return pk, err
	}
	if len(data) != PublicKeySize {
		return pk, fmt.Errorf("%w: public key is %d bytes, want %d", ErrInvalidKey, len(data), PublicKeySize)
	}
	copy(pk[:], data)
	return pk, nil
}

// Slice returns the key as a []byte.
func (k PublicKey) Slice() []byte { return k[:] }

// IsZero reports whether k is unset.
func (k PublicKey) IsZero() bool { return k == PublicKey{} }

// String returns the PUB_K1_ form of the key.
func (k PublicKey) String() string { return k1PublicPrefix + encodeChecked(k[:], "K1") }

// LegacyString returns the EOS prefixed form of the key.
func (k PublicKey) LegacyString() string { return legacyPrefix + encodeChecked(k[:], "") }

// MarshalText implements encoding.TextMarshaler.
func (k PublicKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PublicKey) UnmarshalText(b []byte) error {
	v, err := ParsePublicKey(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// PrivateKey is a secp256k1 (K1) private scalar.
type PrivateKey [PrivateKeySize]byte

// ParsePrivateKey decodes a WIF or PVT_K1_ prefixed private key.
func ParsePrivateKey(s string) (PrivateKey, error) {
	var sk PrivateKey
	var data []byte
	if strings.HasPrefix(s, k1PrivatePrefix) {
		b, err := decodeChecked(strings.TrimPrefix(s, k1PrivatePrefix), "K1")
		if err != nil {
			return sk, err
		}
		data = b
	} else {
		b, version, err := base58.CheckDecode(s)
		if err != nil {
			return sk, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		if version != wifVersion {
			return sk, fmt.Errorf("%w: unexpected WIF version 0x%02x", ErrInvalidKey, version)
		}
		data = b
	}
	if len(data) != PrivateKeySize {
		return sk, fmt.Errorf("%w: private key is %d bytes, want %d", ErrInvalidKey, len(data), PrivateKeySize)
	}
	copy(sk[:], data)
	return sk, nil
}

// Slice returns the key as a []byte.
func (k PrivateKey) Slice() []byte { return k[:] }

// IsZero reports whether k is unset.
func (k PrivateKey) IsZero() bool { return k == PrivateKey{} }

// WIF returns the wallet import format of the key.
func (k PrivateKey) WIF() string { return base58.CheckEncode(k[:], wifVersion) }

// K1String returns the PVT_K1_ form of the key.
func (k PrivateKey) K1String() string { return k1PrivatePrefix + encodeChecked(k[:], "K1") }

// MarshalText encodes the key as WIF.
func (k PrivateKey) MarshalText() ([]byte, error) { return []byte(k.WIF()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PrivateKey) UnmarshalText(b []byte) error {
	v, err := ParsePrivateKey(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

func keyChecksum(data []byte, suffix string) []byte {
	h := ripemd160.New()
	h.Write(data)
	h.Write([]byte(suffix))
	return h.Sum(nil)[:checksumSize]
}

func encodeChecked(data []byte, suffix string) string {
	buf := make([]byte, 0, len(data)+checksumSize)
	buf = append(buf, data...)
	buf = append(buf, keyChecksum(data, suffix)...)
	return base58.Encode(buf)
}

func decodeChecked(s, suffix string) ([]byte, error) {
	raw := base58.Decode(s)
	if len(raw) <= checksumSize {
		return nil, fmt.Errorf("%w: bad base58 payload", ErrInvalidKey)
	}
	data, sum := raw[:len(raw)-checksumSize], raw[len(raw)-checksumSize:]
	if !bytes.Equal(sum, keyChecksum(data, suffix)) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidKey)
	}
	return data, nil
}
