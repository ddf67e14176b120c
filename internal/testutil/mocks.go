// Package testutil provides in-memory collaborators for session and registry tests.
package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/FreePeak/track-commands-ws/internal/domain"
)

type frame struct {
	msg domain.InboundMessage
	err error
}

// MockConnection implements domain.Connection for testing. Inbound frames are
// queued with Deliver and the connection is ended with Terminate.
type MockConnection struct {
	SendFunc          func(ctx context.Context, data []byte) error
	RemoteAddressFunc func() (domain.Address, error)

	id      string
	inbound chan frame
	sentCh  chan []byte

	mu      sync.Mutex
	sent    [][]byte
	termErr error
	closed  bool
}

// NewMockConnection creates a mock connection with the given id.
func NewMockConnection(id string) *MockConnection {
	return &MockConnection{
		id:      id,
		inbound: make(chan frame, 128),
		sentCh:  make(chan []byte, 128),
	}
}

// ID implements Connection.ID
func (m *MockConnection) ID() string {
	return m.id
}

// Send implements Connection.Send
func (m *MockConnection) Send(ctx context.Context, data []byte) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(ctx, data); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.sent = append(m.sent, data)
	m.mu.Unlock()

	select {
	case m.sentCh <- data:
	default:
	}
	return nil
}

// Receive implements Connection.Receive
func (m *MockConnection) Receive(ctx context.Context) (domain.InboundMessage, error) {
	m.mu.Lock()
	termErr := m.termErr
	m.mu.Unlock()
	if termErr != nil {
		return domain.InboundMessage{}, termErr
	}

	select {
	case f := <-m.inbound:
		if f.err != nil {
			m.mu.Lock()
			m.termErr = f.err
			m.mu.Unlock()
			return domain.InboundMessage{}, f.err
		}
		return f.msg, nil
	case <-ctx.Done():
		return domain.InboundMessage{}, ctx.Err()
	}
}

// RemoteAddress implements Connection.RemoteAddress
func (m *MockConnection) RemoteAddress() (domain.Address, error) {
	if m.RemoteAddressFunc != nil {
		return m.RemoteAddressFunc()
	}
	return domain.Address{Host: "127.0.0.1", Port: 50000}, nil
}

// Close implements Connection.Close. It ends the receive sequence cleanly.
func (m *MockConnection) Close() error {
	m.mu.Lock()
	alreadyClosed := m.closed
	m.closed = true
	m.mu.Unlock()

	if !alreadyClosed {
		m.Terminate(domain.ErrConnectionClosed)
	}
	return nil
}

// IsClosed reports whether Close was called.
func (m *MockConnection) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Deliver queues an inbound text frame.
func (m *MockConnection) Deliver(text string) {
	m.inbound <- frame{msg: domain.InboundMessage{Type: domain.TextMessage, Data: []byte(text)}}
}

// DeliverMessage queues an arbitrary inbound frame.
func (m *MockConnection) DeliverMessage(msg domain.InboundMessage) {
	m.inbound <- frame{msg: msg}
}

// Terminate ends the receive sequence with err after all queued frames.
func (m *MockConnection) Terminate(err error) {
	m.inbound <- frame{err: err}
}

// Sent returns every frame written with Send.
func (m *MockConnection) Sent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sent))
	copy(out, m.sent)
	return out
}

// WaitForSent waits for the next frame written with Send.
func (m *MockConnection) WaitForSent(ctx context.Context) ([]byte, error) {
	select {
	case data := <-m.sentCh:
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// MockPayloadPool implements domain.PayloadPool over an in-memory map.
type MockPayloadPool struct {
	EntriesErr error
	LoadErr    error

	mu       sync.Mutex
	payloads map[string]interface{}
	loaded   []string
}

// NewMockPayloadPool creates a pool holding payloads.
func NewMockPayloadPool(payloads map[string]interface{}) *MockPayloadPool {
	if payloads == nil {
		payloads = make(map[string]interface{})
	}
	return &MockPayloadPool{payloads: payloads}
}

// Entries implements PayloadPool.Entries
func (p *MockPayloadPool) Entries(_ context.Context) ([]string, error) {
	if p.EntriesErr != nil {
		return nil, p.EntriesErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.payloads))
	for name := range p.payloads {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Load implements PayloadPool.Load
func (p *MockPayloadPool) Load(_ context.Context, name string) (interface{}, error) {
	if p.LoadErr != nil {
		return nil, p.LoadErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loaded = append(p.loaded, name)
	value, ok := p.payloads[name]
	if !ok {
		return nil, domain.ErrPayloadPoolEmpty
	}
	return value, nil
}

// Loaded returns the names passed to Load, in call order.
func (p *MockPayloadPool) Loaded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.loaded))
	copy(out, p.loaded)
	return out
}

// RecordingSink implements domain.MessageSink and keeps every message it sees.
type RecordingSink struct {
	ProcessFunc func(ctx context.Context, conn domain.Connection, msg domain.InboundMessage) error

	mu       sync.Mutex
	messages map[string][]string
}

// NewRecordingSink creates an empty sink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{messages: make(map[string][]string)}
}

// Process implements MessageSink.Process
func (s *RecordingSink) Process(ctx context.Context, conn domain.Connection, msg domain.InboundMessage) error {
	s.mu.Lock()
	s.messages[conn.ID()] = append(s.messages[conn.ID()], msg.Text())
	s.mu.Unlock()

	if s.ProcessFunc != nil {
		return s.ProcessFunc(ctx, conn, msg)
	}
	return nil
}

// Messages returns the messages recorded for a connection, in order.
func (s *RecordingSink) Messages(connID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.messages[connID]))
	copy(out, s.messages[connID])
	return out
}
