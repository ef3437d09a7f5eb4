package sealed

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"linkmgr/internal/crypto"
	"linkmgr/internal/domain"
)

var (
	// ErrDecryption is returned when a ciphertext has a bad length or padding.
	ErrDecryption = errors.New("sealed: decryption failed")
)

const (
	cipherKeySize = 32
	ivSize        = aes.BlockSize
)

// DeriveKey returns the 64-byte message key for a (private, public, nonce)
// triple: SHA-512 over the little-endian nonce followed by the shared secret.
//
// Bytes 0..31 are the AES-256 key and bytes 32..47 the CBC IV.
func DeriveKey(priv domain.PrivateKey, pub domain.PublicKey, nonce uint64) ([sha512.Size]byte, error) {
	secret, err := crypto.SharedSecret(priv, pub)
	if err != nil {
		return [sha512.Size]byte{}, err
	}
	buf := make([]byte, 8, 8+len(secret))
	binary.LittleEndian.PutUint64(buf, nonce)
	buf = append(buf, secret[:]...)
	key := sha512.Sum512(buf)

	crypto.Wipe(buf)
	crypto.Wipe(secret[:])
	return key, nil
}

// Checksum returns the key check value carried alongside a sealed message.
func Checksum(key [sha512.Size]byte) uint32 {
	sum := sha256.Sum256(key[:])
	return binary.LittleEndian.Uint32(sum[:4])
}

// Unseal decrypts ciphertext sent by the holder of from's private key to
// the holder of priv. The plaintext is returned as UTF-8 text.
func Unseal(ciphertext []byte, priv domain.PrivateKey, from domain.PublicKey, nonce uint64) (string, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d is not a multiple of %d",
			ErrDecryption, len(ciphertext), aes.BlockSize)
	}
	key, err := DeriveKey(priv, from, nonce)
	if err != nil {
		return "", err
	}
	defer crypto.Wipe(key[:])

	block, err := aes.NewCipher(key[:cipherKeySize])
	if err != nil {
		return "", err
	}
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, key[cipherKeySize:cipherKeySize+ivSize]).CryptBlocks(plain, ciphertext)

	plain, err = unpad(plain)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plain) {
		return strings.ToValidUTF8(string(plain), "\uFFFD"), nil
	}
	return string(plain), nil
}

// Seal encrypts plaintext from the holder of priv to the holder of to.
// It is the inverse of Unseal and is used by request producers and tests.
func Seal(plaintext string, priv domain.PrivateKey, to domain.PublicKey, nonce uint64) (domain.SealedEnvelope, error) {
	key, err := DeriveKey(priv, to, nonce)
	if err != nil {
		return domain.SealedEnvelope{}, err
	}
	defer crypto.Wipe(key[:])

	block, err := aes.NewCipher(key[:cipherKeySize])
	if err != nil {
		return domain.SealedEnvelope{}, err
	}
	padded := pad([]byte(plaintext))
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, key[cipherKeySize:cipherKeySize+ivSize]).CryptBlocks(ct, padded)

	return domain.SealedEnvelope{
		From:       crypto.PublicKeyOf(priv),
		Nonce:      nonce,
		Ciphertext: ct,
		Checksum:   Checksum(key),
	}, nil
}

// RandomNonce returns a random 64-bit nonce.
func RandomNonce() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// pad applies PKCS#7 padding to a whole number of AES blocks.
func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(append([]byte(nil), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("%w: invalid padding", ErrDecryption)
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("%w: invalid padding", ErrDecryption)
		}
	}
	return b[:len(b)-n], nil
}
