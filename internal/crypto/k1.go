package crypto

import (
	"crypto/sha512"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"

	"linkmgr/internal/domain"
)

// SharedSecretSize is the length of the value returned by SharedSecret.
const SharedSecretSize = sha512.Size

// GeneratePrivateKey returns a fresh secp256k1 private key.
func GeneratePrivateKey() (domain.PrivateKey, error) {
	var out domain.PrivateKey
	sk, err := btcec.NewPrivateKey()
	if err != nil {
		return out, err
	}
	copy(out[:], sk.Serialize())
	sk.Zero()
	return out, nil
}

// PublicKeyOf returns the compressed public key for priv.
func PublicKeyOf(priv domain.PrivateKey) domain.PublicKey {
	var out domain.PublicKey
	_, pub := btcec.PrivKeyFromBytes(priv.Slice())
	copy(out[:], pub.SerializeCompressed())
	return out
}

// SharedSecret computes the ECDH secret between priv and pub.
//
// The result is SHA-512 over the 32-byte x-coordinate of the shared point,
// so both parties arrive at the same 64 bytes.
func SharedSecret(priv domain.PrivateKey, pub domain.PublicKey) ([SharedSecretSize]byte, error) {
	var out [SharedSecretSize]byte
	point, err := btcec.ParsePubKey(pub.Slice())
	if err != nil {
		return out, fmt.Errorf("%w: %v", domain.ErrInvalidKey, err)
	}
	sk, _ := btcec.PrivKeyFromBytes(priv.Slice())
	defer sk.Zero()

	x := btcec.GenerateSharedSecret(sk, point)
	defer Wipe(x)
	return sha512.Sum512(x), nil
}
