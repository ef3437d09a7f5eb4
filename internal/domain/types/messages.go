package types

// SealedEnvelope is an inbound request as carried by the relay channel,
// already decoded from its frame.
type SealedEnvelope struct {
	From       PublicKey `json:"from"`
	Nonce      uint64    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"`
	Checksum   uint32    `json:"checksum"`
}
