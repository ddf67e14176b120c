package domain

import "fmt"

// ErrorKind classifies how a failure affects a session.
type ErrorKind string

const (
	// KindBestEffort failures are logged and never end a session.
	KindBestEffort ErrorKind = "best_effort"
	// KindSessionEnding failures end the session that observed them.
	KindSessionEnding ErrorKind = "session_ending"
	// KindFatal failures terminate the process.
	KindFatal ErrorKind = "fatal"
)

// Common domain errors
var (
	ErrConnectionClosed       = NewError("connection closed normally", KindSessionEnding)
	ErrAddressUnavailable     = NewError("remote address unavailable", KindBestEffort)
	ErrPayloadPoolUnavailable = NewError("payload pool unavailable", KindBestEffort)
	ErrPayloadPoolEmpty       = NewError("payload pool is empty", KindBestEffort)
)

// Error represents a domain error with an associated kind.
type Error struct {
	Message string
	Kind    ErrorKind
}

// Error returns the error message.
func (e *Error) Error() string {
	return e.Message
}

// NewError creates a new domain error with the given message and kind.
func NewError(message string, kind ErrorKind) *Error {
	return &Error{
		Message: message,
		Kind:    kind,
	}
}

// Close codes used when a connection ends without a clean close handshake.
const (
	CloseNormalClosure   = 1000
	CloseGoingAway       = 1001
	CloseAbnormalClosure = 1006
)

// AbnormalCloseError indicates that a connection ended without a clean close
// initiated by the peer: a protocol error, an unexpected EOF or a network failure.
type AbnormalCloseError struct {
	Code   int
	Reason string
	Err    error
}

// Error returns the error message.
func (e *AbnormalCloseError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("connection closed abnormally (code %d): %s", e.Code, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("connection closed abnormally (code %d): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("connection closed abnormally (code %d)", e.Code)
}

// Unwrap returns the underlying transport error.
func (e *AbnormalCloseError) Unwrap() error {
	return e.Err
}

// NewAbnormalCloseError creates a new AbnormalCloseError.
func NewAbnormalCloseError(code int, reason string, err error) *AbnormalCloseError {
	return &AbnormalCloseError{
		Code:   code,
		Reason: reason,
		Err:    err,
	}
}
