package types

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

var (
	// ErrInvalidName is returned when an account or session name is malformed.
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidChainID is returned when a chain id is not 32 hex-encoded bytes.
	ErrInvalidChainID = errors.New("invalid chain id")
)

var namePattern = regexp.MustCompile(`^[.1-5a-z]{0,12}[.1-5a-j]?$`)

// Name is an on-chain account, permission or session name.
type Name string

// ParseName validates s as a Name.
func ParseName(s string) (Name, error) {
	if !namePattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, s)
	}
	return Name(s), nil
}

// String returns the string form of the name.
func (n Name) String() string { return string(n) }

// MarshalText implements encoding.TextMarshaler.
func (n Name) MarshalText() ([]byte, error) { return []byte(n), nil }

// UnmarshalText validates and decodes a name.
func (n *Name) UnmarshalText(b []byte) error {
	v, err := ParseName(string(b))
	if err != nil {
		return err
	}
	*n = v
	return nil
}

// ChainID identifies a blockchain network (checksum256).
type ChainID [32]byte

// ParseChainID decodes a 64 character hex chain id.
func ParseChainID(s string) (ChainID, error) {
	var id ChainID
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(id) {
		return id, fmt.Errorf("%w: %q", ErrInvalidChainID, s)
	}
	copy(id[:], b)
	return id, nil
}

// String returns the lowercase hex form of the chain id.
func (id ChainID) String() string { return hex.EncodeToString(id[:]) }

// IsZero reports whether id is unset.
func (id ChainID) IsZero() bool { return id == ChainID{} }

// MarshalText implements encoding.TextMarshaler.
func (id ChainID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ChainID) UnmarshalText(b []byte) error {
	v, err := ParseChainID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// Timestamp is a Unix time in milliseconds.
//
// Values that fit in 32 bits are encoded as JSON numbers, larger ones as
// decimal strings. Both forms are accepted when decoding.
type Timestamp int64

// TimestampOf converts t to a Timestamp.
func TimestampOf(t time.Time) Timestamp { return Timestamp(t.UnixMilli()) }

// Time returns the timestamp as a time.Time.
func (ts Timestamp) Time() time.Time { return time.UnixMilli(int64(ts)) }

// MarshalJSON implements json.Marshaler.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	v := int64(ts)
	if v >= math.MinInt32 && v <= math.MaxUint32 {
		return []byte(strconv.FormatInt(v, 10)), nil
	}
	return json.Marshal(strconv.FormatInt(v, 10))
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*ts = 0
		return nil
	}
	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", b, err)
	}
	*ts = Timestamp(v)
	return nil
}
