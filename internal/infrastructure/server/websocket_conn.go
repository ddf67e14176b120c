package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/FreePeak/track-commands-ws/internal/domain"
)

const closeWriteTimeout = time.Second

// wsConnection adapts a gorilla websocket connection to domain.Connection.
type wsConnection struct {
	id   string
	conn *websocket.Conn

	writeMu sync.Mutex
	closed  bool
}

// newWSConnection wraps conn and assigns it a fresh id.
func newWSConnection(conn *websocket.Conn) *wsConnection {
	return &wsConnection{
		id:   uuid.New().String(),
		conn: conn,
	}
}

// ID returns the connection id.
func (c *wsConnection) ID() string {
	return c.id
}

// Send writes data as one text frame.
func (c *wsConnection) Send(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return ErrConnectionClosing
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Receive reads the next data frame. Control frames are handled by gorilla.
func (c *wsConnection) Receive(ctx context.Context) (domain.InboundMessage, error) {
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return domain.InboundMessage{}, classifyReadError(err)
	}

	msgType, data, err := c.conn.ReadMessage()
	if err != nil {
		return domain.InboundMessage{}, classifyReadError(err)
	}

	msg := domain.InboundMessage{Type: domain.TextMessage, Data: data}
	if msgType == websocket.BinaryMessage {
		msg.Type = domain.BinaryMessage
	}
	return msg, nil
}

// RemoteAddress returns the peer address of the underlying network connection.
func (c *wsConnection) RemoteAddress() (domain.Address, error) {
	return addressOf(c.conn.RemoteAddr())
}

// Close sends a going-away close frame and closes the network connection.
func (c *wsConnection) Close() error {
	c.writeMu.Lock()
	if c.closed {
		c.writeMu.Unlock()
		return nil
	}
	c.closed = true
	c.writeMu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
	return c.conn.Close()
}

func addressOf(addr net.Addr) (domain.Address, error) {
	if addr == nil {
		return domain.Address{}, domain.ErrAddressUnavailable
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return domain.Address{Host: tcp.IP.String(), Port: tcp.Port}, nil
	}

	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return domain.Address{}, fmt.Errorf("parse remote address %q: %w", addr.String(), err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return domain.Address{}, fmt.Errorf("parse remote port %q: %w", portStr, err)
	}
	return domain.Address{Host: host, Port: port}, nil
}

// classifyReadError maps a gorilla read error to the domain close errors.
// A close frame with code 1000 or 1001 is a clean closure; everything else is
// abnormal.
func classifyReadError(err error) error {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseNormalClosure, websocket.CloseGoingAway:
			return fmt.Errorf("%w (code %d)", domain.ErrConnectionClosed, closeErr.Code)
		default:
			return domain.NewAbnormalCloseError(closeErr.Code, closeErr.Text, err)
		}
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.NewAbnormalCloseError(domain.CloseAbnormalClosure, "unexpected EOF", err)
	}
	return domain.NewAbnormalCloseError(domain.CloseAbnormalClosure, "", err)
}
