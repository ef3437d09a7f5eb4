// Package crypto exposes the minimal primitives used by the link manager.
//
// Contents
//
//   - secp256k1 (K1) key generation and public key derivation
//     (GeneratePrivateKey, PublicKeyOf)
//   - ECDH shared secrets hashed to 64 bytes (SharedSecret)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// Keys use the fixed-size array types defined in internal/domain. Callers
// should treat returned secrets as sensitive and rely on Wipe when practical
// to reduce lifetime in memory.
package crypto
