package transport

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
)

// closeGrace bounds the close handshake.
const closeGrace = time.Second

// WebSocket is a Transport where one text frame is one message.
type WebSocket struct {
	url    string
	opts   Options
	dialer *websocket.Dialer

	conn *websocket.Conn
}

var _ Transport = (*WebSocket)(nil)

// NewWebSocket creates an unconnected WebSocket transport for url.
func NewWebSocket(url string, opts Options) *WebSocket {
	return &WebSocket{url: url, opts: opts, dialer: websocket.DefaultDialer}
}

// AcceptWebSocket wraps an upgraded server-side conn; Connect becomes a no-op.
func AcceptWebSocket(conn *websocket.Conn, opts Options) *WebSocket {
	return &WebSocket{url: conn.RemoteAddr().String(), opts: opts, conn: conn}
}

// Connect performs the WebSocket handshake.
func (w *WebSocket) Connect(ctx context.Context) error {
	if w.conn != nil {
		return nil
	}
	if w.opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.opts.DialTimeout)
		defer cancel()
	}
	conn, resp, err := w.dialer.DialContext(ctx, w.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return &ConnectionError{Op: "dial", Addr: w.url, Err: err}
	}
	w.conn = conn
	return nil
}

// Send writes payload as one text frame.
func (w *WebSocket) Send(ctx context.Context, payload []byte) error {
	if w.conn == nil {
		return &ConnectionError{Op: "write", Addr: w.url, Err: errNotConnected}
	}
	stop := watch(ctx, 0, w.conn.SetWriteDeadline)
	defer stop()
	if err := w.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return &ConnectionError{Op: "write", Addr: w.url, Err: cause(ctx, err)}
	}
	return nil
}

// Receive blocks until one data frame arrives.
func (w *WebSocket) Receive(ctx context.Context) ([]byte, error) {
	if w.conn == nil {
		return nil, &ConnectionError{Op: "read", Addr: w.url, Err: errNotConnected}
	}
	stop := watch(ctx, w.opts.ReadTimeout, w.conn.SetReadDeadline)
	defer stop()
	_, data, err := w.conn.ReadMessage()
	if err != nil {
		return nil, &ConnectionError{Op: "read", Addr: w.url, Err: cause(ctx, err)}
	}
	return data, nil
}

// Close sends a close frame and closes the connection.
func (w *WebSocket) Close() error {
	if w.conn == nil {
		return nil
	}
	conn := w.conn
	w.conn = nil
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
	if err := conn.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return &ConnectionError{Op: "close", Addr: w.url, Err: err}
	}
	return nil
}
