package interfaces

// Handler receives the manager's outputs. Implementations are supplied by
// the host application.
type Handler interface {
	// OnIncomingRequest is called with the plaintext of every authenticated
	// request, in arrival order.
	OnIncomingRequest(payload string)
	// OnStorageUpdate is called with the serialized store after each mutation.
	OnStorageUpdate(storage string)
}

// SocketEventHandler is optionally implemented by a Handler to observe raw
// channel events for diagnostics.
type SocketEventHandler interface {
	OnSocketEvent(kind string, event any)
}
