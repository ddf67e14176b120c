package domain

import (
	"context"
	"net"
	"strconv"
)

// MessageType identifies the kind of frame carried by an InboundMessage.
type MessageType int

// Frame types understood by the endpoint.
const (
	TextMessage   MessageType = 1
	BinaryMessage MessageType = 2
)

// String returns the frame type name.
func (t MessageType) String() string {
	switch t {
	case TextMessage:
		return "text"
	case BinaryMessage:
		return "binary"
	default:
		return "unknown"
	}
}

// InboundMessage is one frame received from a client. It is never parsed.
type InboundMessage struct {
	Type MessageType
	Data []byte
}

// Text returns the message payload as a string.
func (m InboundMessage) Text() string {
	return string(m.Data)
}

// Address is the remote endpoint of a connection.
type Address struct {
	Host string
	Port int
}

// String returns the address in host:port form.
func (a Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// Connection is a message-framed, bidirectional client connection handed over by
// the transport layer. The transport owns its allocation; a session observes it
// for its whole lifetime.
type Connection interface {
	// ID returns a stable identifier unique among live connections.
	ID() string

	// Send writes one serialized text frame to the client.
	Send(ctx context.Context, data []byte) error

	// Receive blocks until the next inbound frame arrives. It returns
	// ErrConnectionClosed when the peer closed cleanly and an
	// *AbnormalCloseError when the connection ended any other way.
	Receive(ctx context.Context) (InboundMessage, error)

	// RemoteAddress returns the client address, if the transport knows it.
	RemoteAddress() (Address, error)

	// Close tears the connection down. Sessions never call it.
	Close() error
}
