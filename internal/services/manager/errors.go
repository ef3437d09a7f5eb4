package manager

import (
	"errors"
	"fmt"

	"linkmgr/internal/domain"
)

// ErrUnknownSender matches any UnknownSenderError.
var ErrUnknownSender = errors.New("manager: unknown sender")

// UnknownSenderError rejects a request whose sender key has no session.
type UnknownSenderError struct {
	PublicKey domain.PublicKey
}

func (e *UnknownSenderError) Error() string {
	return fmt.Sprintf("manager: unknown sender %s", e.PublicKey)
}

func (e *UnknownSenderError) Is(target error) bool { return target == ErrUnknownSender }
