package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"linkmgr/internal/domain"
)

// Fingerprint returns 16 hex characters identifying pub in logs and listings.
func Fingerprint(pub domain.PublicKey) string {
	sum := sha256.Sum256(pub[:])
	return hex.EncodeToString(sum[:8])
}
