// Package sealed unseals requests delivered over the relay channel.
//
// # Overview
//
// A requesting application encrypts each request for this manager's static
// request key. The frame carries the sender's public key, a 64-bit nonce,
// the ciphertext and a key check value.
//
// # Flow
//
//  1. Compute the ECDH shared secret between the local private key and the
//     sender's public key (see internal/crypto.SharedSecret).
//  2. Hash the little-endian nonce followed by the secret with SHA-512.
//  3. Use bytes 0..31 of the digest as the AES-256 key and bytes 32..47 as
//     the CBC IV; decrypt and strip PKCS#7 padding.
//  4. Interpret the plaintext as UTF-8.
//
// # Errors
//
// ErrDecryption is returned for ciphertexts whose length is not a multiple
// of the block size or whose padding is invalid. ErrMalformedMessage is
// returned by DecodeEnvelope for truncated or unsupported frames.
//
// Unseal holds no state; identical inputs always produce identical output.
package sealed
