package crypto

import "runtime"

// Wipe zeroes b in place. It is best effort: copies made elsewhere (by the
// runtime or by callers) are not reached.
//
//go:noinline
func Wipe(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}
