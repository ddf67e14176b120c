package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/FreePeak/track-commands-ws/internal/domain"
	"github.com/FreePeak/track-commands-ws/internal/infrastructure/logging"
)

// connectionRegistry implements the domain.ConnectionRegistry interface.
// It only tracks membership; connections are closed by their transport.
type connectionRegistry struct {
	mu     sync.RWMutex
	conns  map[string]domain.Connection
	logger *logging.Logger
}

// NewConnectionRegistry creates an empty registry.
func NewConnectionRegistry(logger *logging.Logger) domain.ConnectionRegistry {
	if logger == nil {
		logger = logging.Default()
	}
	return &connectionRegistry{
		conns:  make(map[string]domain.Connection),
		logger: logger,
	}
}

// Add registers a connection and logs its address.
func (r *connectionRegistry) Add(conn domain.Connection) {
	r.mu.Lock()
	r.conns[conn.ID()] = conn
	r.mu.Unlock()

	r.logAddress(conn, "connected")
}

// Remove deregisters a connection if present and logs its address.
func (r *connectionRegistry) Remove(conn domain.Connection) {
	r.mu.Lock()
	delete(r.conns, conn.ID())
	r.mu.Unlock()

	r.logAddress(conn, "disconnected")
}

// Contains reports whether the connection is registered.
func (r *connectionRegistry) Contains(conn domain.Connection) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[conn.ID()]
	return ok
}

// Count returns the number of registered connections.
func (r *connectionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CloseAll closes every registered connection. Entries are left in place:
// each session removes its own connection when its receive loop ends.
func (r *connectionRegistry) CloseAll() {
	r.mu.RLock()
	conns := make([]domain.Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			r.logger.Debug("Close connection failed", logging.Fields{
				"connection_id": conn.ID(),
				"error":         err,
			})
		}
	}
}

func (r *connectionRegistry) logAddress(conn domain.Connection, event string) {
	addr, err := resolveAddress(conn)
	switch {
	case err == nil:
		r.logger.Infof("Client %s %s.", addr, event)
	case errors.Is(err, domain.ErrAddressUnavailable):
		r.logger.Info("Client address unavailable.", logging.Fields{"connection_id": conn.ID()})
	default:
		r.logger.Warn(fmt.Sprintf("Failed to resolve address of %s client", event), logging.Fields{
			"connection_id": conn.ID(),
			"error":         err,
		})
	}
}

// resolveAddress asks the connection for its remote address. Any failure,
// including a panic inside the transport, comes back as an error.
func resolveAddress(conn domain.Connection) (addr domain.Address, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("resolve remote address: %v", rec)
		}
	}()
	return conn.RemoteAddress()
}
