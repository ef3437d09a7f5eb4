package sealed

import (
	"encoding/binary"
	"errors"
	"fmt"

	"linkmgr/internal/domain"
)

// ErrMalformedMessage is returned when a frame is not a valid sealed message.
var ErrMalformedMessage = errors.New("sealed: malformed message")

// curveK1 is the key-type tag preceding a secp256k1 public key.
const curveK1 = 0

// DecodeEnvelope parses a binary sealed_message frame:
//
//	from       key type (1 byte) + compressed public key (33 bytes)
//	nonce      uint64, little endian
//	ciphertext varuint32 length + bytes
//	checksum   uint32, little endian
func DecodeEnvelope(frame []byte) (domain.SealedEnvelope, error) {
	var env domain.SealedEnvelope
	r := reader{buf: frame}

	tag, err := r.byte()
	if err != nil {
		return env, err
	}
	if tag != curveK1 {
		return env, fmt.Errorf("%w: unsupported key type %d", ErrMalformedMessage, tag)
	}
	key, err := r.bytes(domain.PublicKeySize)
	if err != nil {
		return env, err
	}
	copy(env.From[:], key)

	if env.Nonce, err = r.uint64(); err != nil {
		return env, err
	}
	n, err := r.varuint32()
	if err != nil {
		return env, err
	}
	ct, err := r.bytes(int(n))
	if err != nil {
		return env, err
	}
	env.Ciphertext = append([]byte(nil), ct...)

	if env.Checksum, err = r.uint32(); err != nil {
		return env, err
	}
	if r.off != len(frame) {
		return env, fmt.Errorf("%w: %d trailing bytes", ErrMalformedMessage, len(frame)-r.off)
	}
	return env, nil
}

// EncodeEnvelope is the inverse of DecodeEnvelope.
func EncodeEnvelope(env domain.SealedEnvelope) []byte {
	out := make([]byte, 0, 1+domain.PublicKeySize+8+5+len(env.Ciphertext)+4)
	out = append(out, curveK1)
	out = append(out, env.From[:]...)
	out = binary.LittleEndian.AppendUint64(out, env.Nonce)
	out = binary.AppendUvarint(out, uint64(len(env.Ciphertext)))
	out = append(out, env.Ciphertext...)
	out = binary.LittleEndian.AppendUint32(out, env.Checksum)
	return out
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || len(r.buf)-r.off < n {
		return nil, fmt.Errorf("%w: unexpected end of frame", ErrMalformedMessage)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) byte() (byte, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) uint64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) varuint32() (uint32, error) {
	v, n := binary.Uvarint(r.buf[r.off:])
	if n <= 0 || v > 0xffffffff {
		return 0, fmt.Errorf("%w: bad length prefix", ErrMalformedMessage)
	}
	r.off += n
	return uint32(v), nil
}
