package domain

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestDomainError(t *testing.T) {
	tests := []struct {
		name    string
		message string
		kind    ErrorKind
	}{
		{
			name:    "Best-effort error",
			message: "remote address unavailable",
			kind:    KindBestEffort,
		},
		{
			name:    "Session-ending error",
			message: "connection closed normally",
			kind:    KindSessionEnding,
		},
		{
			name:    "Fatal error",
			message: "listener failed",
			kind:    KindFatal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewError(tt.message, tt.kind)

			if err.Message != tt.message {
				t.Errorf("NewError().Message = %v, want %v", err.Message, tt.message)
			}
			if err.Kind != tt.kind {
				t.Errorf("NewError().Kind = %v, want %v", err.Kind, tt.kind)
			}
			if err.Error() != tt.message {
				t.Errorf("NewError().Error() = %v, want %v", err.Error(), tt.message)
			}
		})
	}
}

func TestSentinelErrorsMatchWhenWrapped(t *testing.T) {
	wrapped := fmt.Errorf("read frame: %w", ErrConnectionClosed)
	if !errors.Is(wrapped, ErrConnectionClosed) {
		t.Error("wrapped ErrConnectionClosed should match with errors.Is")
	}
	if errors.Is(wrapped, ErrPayloadPoolEmpty) {
		t.Error("wrapped ErrConnectionClosed should not match ErrPayloadPoolEmpty")
	}
}

func TestAbnormalCloseError(t *testing.T) {
	tests := []struct {
		name   string
		err    *AbnormalCloseError
		expect string
	}{
		{
			name:   "With reason",
			err:    NewAbnormalCloseError(1002, "protocol error", nil),
			expect: "connection closed abnormally (code 1002): protocol error",
		},
		{
			name:   "With cause only",
			err:    NewAbnormalCloseError(CloseAbnormalClosure, "", io.ErrUnexpectedEOF),
			expect: "connection closed abnormally (code 1006): unexpected EOF",
		},
		{
			name:   "Code only",
			err:    NewAbnormalCloseError(1011, "", nil),
			expect: "connection closed abnormally (code 1011)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expect {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.expect)
			}
		})
	}

	err := fmt.Errorf("receive: %w", NewAbnormalCloseError(CloseAbnormalClosure, "", io.ErrUnexpectedEOF))
	var closeErr *AbnormalCloseError
	if !errors.As(err, &closeErr) {
		t.Fatal("errors.As should find the AbnormalCloseError")
	}
	if closeErr.Code != CloseAbnormalClosure {
		t.Errorf("Code = %d, want %d", closeErr.Code, CloseAbnormalClosure)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("AbnormalCloseError should unwrap to its cause")
	}
}
