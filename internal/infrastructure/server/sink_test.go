package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FreePeak/track-commands-ws/internal/domain"
	"github.com/FreePeak/track-commands-ws/internal/testutil"
)

func TestLogSink_RecordsMessagesInOrder(t *testing.T) {
	logger, logs := newObservedLogger()
	sink := NewLogSink(logger)
	conn := testutil.NewMockConnection("conn1")

	for _, text := range []string{"a", "b", "c"} {
		err := sink.Process(context.Background(), conn, domain.InboundMessage{Type: domain.TextMessage, Data: []byte(text)})
		require.NoError(t, err)
	}

	entries := logs.FilterMessage("Received message").All()
	require.Len(t, entries, 3)
	for i, want := range []string{"a", "b", "c"} {
		fields := entries[i].ContextMap()
		assert.Equal(t, want, fields["message"])
		assert.Equal(t, "conn1", fields["connection_id"])
		assert.Equal(t, "text", fields["type"])
	}
}

func TestLogSink_BinaryMessage(t *testing.T) {
	logger, logs := newObservedLogger()
	sink := NewLogSink(logger)

	err := sink.Process(context.Background(), testutil.NewMockConnection("bin"), domain.InboundMessage{
		Type: domain.BinaryMessage,
		Data: []byte{0x01, 0x02, 0x03},
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("Received message").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "binary", fields["type"])
	assert.EqualValues(t, 3, fields["size"])
	assert.NotContains(t, fields, "message")
}
