package domain

import "context"

// ConnectionRegistry tracks the set of currently open connections.
type ConnectionRegistry interface {
	// Add registers a connection. Adding the same connection twice is a no-op.
	Add(conn Connection)

	// Remove deregisters a connection. Removing an unknown connection is a no-op.
	Remove(conn Connection)

	// Contains reports whether the connection is registered.
	Contains(conn Connection) bool

	// Count returns the number of registered connections.
	Count() int

	// CloseAll closes every registered connection.
	CloseAll()
}

// MessageSink receives every inbound message of every connection.
type MessageSink interface {
	// Process records one message. A non-nil error ends the session.
	Process(ctx context.Context, conn Connection, msg InboundMessage) error
}

// PayloadPool is the source of candidate initial payloads.
type PayloadPool interface {
	// Entries lists the names of the currently available payloads.
	Entries(ctx context.Context) ([]string, error)

	// Load reads and decodes the named payload into a JSON-serializable value.
	Load(ctx context.Context, name string) (interface{}, error)
}
