package server

import "errors"

// Common errors in the server package
var (
	// ErrConnectionClosing is returned when writing to a connection that is being closed
	ErrConnectionClosing = errors.New("connection is closing")

	// ErrServerStarted is returned when Start is called on a running server
	ErrServerStarted = errors.New("server already started")

	// ErrServerNotStarted is returned when Shutdown is called before Start
	ErrServerNotStarted = errors.New("server not started")
)
