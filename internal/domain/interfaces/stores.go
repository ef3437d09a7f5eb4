package interfaces

// StorageSink persists the serialized session store between runs.
type StorageSink interface {
	SaveStorage(serialized string) error
	// LoadStorage returns the stored form and whether one was present.
	LoadStorage() (string, bool, error)
}
