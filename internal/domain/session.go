package domain

// SessionState is a step in the life of one connection.
type SessionState int

// Session states in the order a session moves through them. CLOSED is always reached.
const (
	StateConnecting SessionState = iota
	StateRegistered
	StateSendingInitial
	StateReceiving
	StateClosing
	StateClosed
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateRegistered:
		return "REGISTERED"
	case StateSendingInitial:
		return "SENDING_INITIAL"
	case StateReceiving:
		return "RECEIVING"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// CloseReason tells why a session's receive loop ended.
type CloseReason string

const (
	// ClosedNormally means the peer closed the connection cleanly.
	ClosedNormally CloseReason = "closed_normally"
	// ClosedAbnormally means the transport reported an abnormal closure.
	ClosedAbnormally CloseReason = "closed_abnormally"
	// Failed means an unexpected failure ended the session.
	Failed CloseReason = "failed"
)
