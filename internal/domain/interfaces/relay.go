package interfaces

import "context"

// Channel is the persistent relay connection a manager listens on.
type Channel interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Ready() bool
}
