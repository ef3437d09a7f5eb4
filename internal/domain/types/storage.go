package types

// StorageData is the persisted form of a session store.
type StorageData struct {
	LinkID     string        `json:"linkId"`
	LinkURL    string        `json:"linkUrl"`
	RequestKey PrivateKey    `json:"requestKey"`
	Sessions   []LinkSession `json:"sessions"`
}
