package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/FreePeak/track-commands-ws/internal/domain"
	"github.com/FreePeak/track-commands-ws/internal/infrastructure/logging"
)

// SessionConfig holds the collaborators shared by every session.
type SessionConfig struct {
	Registry domain.ConnectionRegistry
	Sink     domain.MessageSink
	Pool     domain.PayloadPool
	Logger   *logging.Logger

	// Intn returns a uniformly distributed int in [0, n). Defaults to rand.IntN.
	Intn func(n int) int
}

// GreetingStatus is the outcome of the best-effort initial payload step.
type GreetingStatus string

const (
	GreetingSent    GreetingStatus = "sent"
	GreetingSkipped GreetingStatus = "skipped"
	GreetingFailed  GreetingStatus = "failed"
)

// GreetingOutcome describes what happened to a session's initial payload.
type GreetingOutcome struct {
	Status GreetingStatus
	Entry  string
	Err    error
}

// SessionResult describes how a session ended.
type SessionResult struct {
	Reason   domain.CloseReason
	Err      error
	Greeting GreetingOutcome
}

// ConnectionSession drives one connection from registration to deregistration.
type ConnectionSession struct {
	conn     domain.Connection
	registry domain.ConnectionRegistry
	sink     domain.MessageSink
	pool     domain.PayloadPool
	intn     func(n int) int
	logger   *logging.Logger
	state    atomic.Int32
}

// NewConnectionSession creates a session for conn.
func NewConnectionSession(conn domain.Connection, cfg SessionConfig) *ConnectionSession {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	intn := cfg.Intn
	if intn == nil {
		intn = rand.Intn
	}
	return &ConnectionSession{
		conn:     conn,
		registry: cfg.Registry,
		sink:     cfg.Sink,
		pool:     cfg.Pool,
		intn:     intn,
		logger:   logger.With(logging.Fields{"connection_id": conn.ID()}),
	}
}

// State returns the session's current state.
func (s *ConnectionSession) State() domain.SessionState {
	return domain.SessionState(s.state.Load())
}

func (s *ConnectionSession) setState(state domain.SessionState) {
	s.state.Store(int32(state))
}

// Run registers the connection, sends the initial payload and forwards inbound
// messages to the sink until the connection ends. The connection is removed
// from the registry exactly once on every exit path, panics included.
func (s *ConnectionSession) Run(ctx context.Context) (result SessionResult) {
	s.setState(domain.StateConnecting)

	defer func() {
		if rec := recover(); rec != nil {
			result.Reason = domain.Failed
			result.Err = fmt.Errorf("session panic: %v", rec)
			s.logger.ErrorWithStack("Error in client handler", logging.Fields{"error": result.Err})
		}
		s.setState(domain.StateClosing)
		s.registry.Remove(s.conn)
		s.setState(domain.StateClosed)
	}()

	s.registry.Add(s.conn)
	s.setState(domain.StateRegistered)

	s.setState(domain.StateSendingInitial)
	result.Greeting = s.sendInitialPayload(ctx)

	s.setState(domain.StateReceiving)
	result.Reason, result.Err = s.receive(ctx)
	return result
}

// sendInitialPayload picks one entry from the pool and sends it as a JSON text
// frame. Failures are logged and reported in the outcome, never returned.
func (s *ConnectionSession) sendInitialPayload(ctx context.Context) (outcome GreetingOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			outcome.Status = GreetingFailed
			outcome.Err = fmt.Errorf("send initial payload: %v", rec)
			s.logger.ErrorWithStack("Error sending random JSON file", logging.Fields{"error": outcome.Err})
		}
	}()

	if s.pool == nil {
		s.logger.Warn("No payload pool configured")
		return GreetingOutcome{Status: GreetingSkipped, Err: domain.ErrPayloadPoolUnavailable}
	}

	entries, err := s.pool.Entries(ctx)
	if err == nil && len(entries) == 0 {
		err = domain.ErrPayloadPoolEmpty
	}
	if err != nil {
		s.logger.Warn("No initial payload available", logging.Fields{"error": err})
		return GreetingOutcome{Status: GreetingSkipped, Err: err}
	}

	entry := entries[s.intn(len(entries))]
	outcome.Entry = entry

	value, err := s.pool.Load(ctx, entry)
	if err != nil {
		return s.greetingFailed(outcome, "Error sending random JSON file", err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return s.greetingFailed(outcome, "Error serializing initial payload", err)
	}

	if err := s.conn.Send(ctx, data); err != nil {
		return s.greetingFailed(outcome, "Error sending message", err)
	}

	s.logger.Info("Sent file", logging.Fields{"entry": entry, "bytes": len(data)})
	outcome.Status = GreetingSent
	return outcome
}

func (s *ConnectionSession) greetingFailed(outcome GreetingOutcome, msg string, err error) GreetingOutcome {
	s.logger.Error(msg, logging.Fields{"entry": outcome.Entry, "error": err})
	outcome.Status = GreetingFailed
	outcome.Err = err
	return outcome
}

// receive hands every inbound message to the sink, in arrival order, until the
// connection ends or the sink fails.
func (s *ConnectionSession) receive(ctx context.Context) (domain.CloseReason, error) {
	for {
		msg, err := s.conn.Receive(ctx)
		if err != nil {
			return s.closed(err)
		}
		if err := s.sink.Process(ctx, s.conn, msg); err != nil {
			err = fmt.Errorf("process message: %w", err)
			s.logger.ErrorWithStack("Error in client handler", logging.Fields{"error": err})
			return domain.Failed, err
		}
	}
}

func (s *ConnectionSession) closed(err error) (domain.CloseReason, error) {
	var abnormal *domain.AbnormalCloseError
	switch {
	case errors.Is(err, domain.ErrConnectionClosed):
		s.logger.Info("Connection closed normally by client.")
		return domain.ClosedNormally, nil
	case errors.As(err, &abnormal):
		s.logger.Warn("Connection closed with error", logging.Fields{
			"code":  abnormal.Code,
			"error": err,
		})
		return domain.ClosedAbnormally, err
	default:
		s.logger.ErrorWithStack("Error in client handler", logging.Fields{"error": err})
		return domain.Failed, err
	}
}
