package store

import (
	"fmt"
	"path/filepath"
	"sync"

	"linkmgr/internal/domain"
)

// StorageFile is the name of the serialized store inside a sink directory.
const StorageFile = "storage.json"

// FileSink persists serialized session storage to a single file under dir.
// With a non-empty passphrase the contents are sealed with
// scrypt + ChaCha20-Poly1305; otherwise they are written verbatim.
type FileSink struct {
	path       string
	passphrase string
	kdf        kdfParams

	mu sync.Mutex
}

// NewFileSink returns a sink writing to dir/storage.json.
func NewFileSink(dir, passphrase string) *FileSink {
	return &FileSink{
		path:       filepath.Join(dir, StorageFile),
		passphrase: passphrase,
		kdf:        defaultKDF,
	}
}

// Path returns the storage file location.
func (s *FileSink) Path() string { return s.path }

// SaveStorage atomically replaces the storage file with serialized.
func (s *FileSink) SaveStorage(serialized string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := []byte(serialized)
	if s.passphrase != "" {
		sealed, err := sealStorage(s.passphrase, b, s.kdf)
		if err != nil {
			return fmt.Errorf("seal storage: %w", err)
		}
		b = sealed
	}
	if err := writeFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write storage: %w", err)
	}
	return nil
}

// LoadStorage returns the last saved storage. ok is false when nothing has
// been saved yet.
func (s *FileSink) LoadStorage() (serialized string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := readFile(s.path)
	if err != nil {
		return "", false, fmt.Errorf("read storage: %w", err)
	}
	if b == nil {
		return "", false, nil
	}
	if s.passphrase != "" {
		if b, err = openStorage(s.passphrase, b); err != nil {
			return "", false, err
		}
	}
	return string(b), true, nil
}

var _ domain.StorageSink = (*FileSink)(nil)
