package server

import (
	"context"

	"github.com/FreePeak/track-commands-ws/internal/domain"
	"github.com/FreePeak/track-commands-ws/internal/infrastructure/logging"
)

// LogSink records every inbound message in the log. It keeps no state.
type LogSink struct {
	logger *logging.Logger
}

// NewLogSink creates a sink writing to logger.
func NewLogSink(logger *logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSink{logger: logger}
}

// Process logs the message. It never fails.
func (s *LogSink) Process(_ context.Context, conn domain.Connection, msg domain.InboundMessage) error {
	fields := logging.Fields{
		"connection_id": conn.ID(),
		"type":          msg.Type.String(),
	}
	if msg.Type == domain.BinaryMessage {
		fields["size"] = len(msg.Data)
		fields["data"] = msg.Data
	} else {
		fields["message"] = msg.Text()
	}
	s.logger.Info("Received message", fields)
	return nil
}
