package core

// Frame is a raw payload delivered to one connection (JSON on the wire).
type Frame []byte

// ConnID identifies one live network connection.
// It changes on every reconnect; participant identity does not.
type ConnID string

// SignalConnection abstracts the messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
