package server_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/FreePeak/track-commands-ws/internal/infrastructure/logging"
	"github.com/FreePeak/track-commands-ws/internal/infrastructure/server"
	"github.com/FreePeak/track-commands-ws/internal/testutil"
)

var candidate = map[string]interface{}{
	"track":    "figure-eight",
	"commands": []interface{}{"forward", "left", "forward", "right"},
}

func newTestServer(t *testing.T, opts ...server.Option) (*server.WebSocketServer, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := logging.NewFromZap(zap.New(core))

	srv := server.NewWebSocketServer(server.SessionConfig{
		Pool:   testutil.NewMockPayloadPool(map[string]interface{}{"figure-eight.json": candidate}),
		Logger: logger,
	}, opts...)
	return srv, logs
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(url, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func TestWebSocketServer_GreetingAndMessages(t *testing.T) {
	srv, logs := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn := dial(t, ts.URL+"/")
	defer conn.Close()

	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, msgType)

	var greeting map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &greeting))
	assert.Equal(t, candidate, greeting)

	assert.Eventually(t, func() bool { return srv.Registry().Count() == 1 }, time.Second, 5*time.Millisecond)

	for _, text := range []string{"a", "b", "c"} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(text)))
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, closeMsg))

	assert.Eventually(t, func() bool { return srv.Registry().Count() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("Connection closed normally by client.").Len() == 1
	}, 2*time.Second, 5*time.Millisecond)

	received := logs.FilterMessage("Received message").All()
	require.Len(t, received, 3)
	for i, want := range []string{"a", "b", "c"} {
		assert.Equal(t, want, received[i].ContextMap()["message"])
	}
}

func TestWebSocketServer_AbruptDisconnect(t *testing.T) {
	srv, logs := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn := dial(t, ts.URL)
	_, _, err := conn.ReadMessage()
	require.NoError(t, err)

	// Drop the TCP connection without a close frame.
	require.NoError(t, conn.UnderlyingConn().Close())

	assert.Eventually(t, func() bool { return srv.Registry().Count() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("Connection closed with error").Len() == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWebSocketServer_TwoConcurrentConnections(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	connA := dial(t, ts.URL)
	defer connA.Close()
	connB := dial(t, ts.URL)
	defer connB.Close()

	for _, conn := range []*websocket.Conn{connA, connB} {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, `{"track":"figure-eight","commands":["forward","left","forward","right"]}`, string(data))
	}

	assert.Eventually(t, func() bool { return srv.Registry().Count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestWebSocketServer_PathAndUpgradeErrors(t *testing.T) {
	srv, logs := newTestServer(t, server.WithPath("/ws"))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	res, err := http.Get(ts.URL + "/other")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, err = http.Get(ts.URL + "/ws")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, 1, logs.FilterMessage("WebSocket upgrade failed").Len())

	conn := dial(t, ts.URL+"/ws")
	defer conn.Close()
	_, _, err = conn.ReadMessage()
	require.NoError(t, err)
}

func TestWebSocketServer_ReadLimit(t *testing.T) {
	srv, logs := newTestServer(t, server.WithReadLimit(8))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn := dial(t, ts.URL)
	defer conn.Close()
	_, _, err := conn.ReadMessage()
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("this message is too long")))

	assert.Eventually(t, func() bool { return srv.Registry().Count() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, logs.FilterMessage("Received message").Len())
}

func TestWebSocketServer_StartAndShutdown(t *testing.T) {
	srv, logs := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	assert.Eventually(t, func() bool { return srv.Addr() != nil }, time.Second, 5*time.Millisecond)

	conn := dial(t, "http://"+srv.Addr().String())
	defer conn.Close()
	_, _, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return srv.Registry().Count() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}

	// The client sees the going-away close frame.
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)

	assert.Equal(t, 0, srv.Registry().Count())
	assert.Equal(t, 1, logs.FilterMessageSnippet("Server started on").Len())
}

func TestWebSocketServer_ShutdownBeforeStart(t *testing.T) {
	srv, _ := newTestServer(t)
	assert.ErrorIs(t, srv.Shutdown(context.Background()), server.ErrServerNotStarted)
}

func TestWebSocketServer_ServeTwice(t *testing.T) {
	srv, _ := newTestServer(t)

	ln1, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(ln1) }()
	assert.Eventually(t, func() bool { return srv.Addr() != nil }, time.Second, 5*time.Millisecond)

	ln2, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	assert.ErrorIs(t, srv.Serve(ln2), server.ErrServerStarted)

	require.NoError(t, srv.Shutdown(context.Background()))
}
