package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/coder/websocket"
)

// defaultReadLimit bounds a single inbound frame (1MB).
const defaultReadLimit = 1 << 20

// WebSocketDialer dials the chat server over WebSocket. Frames travel as text messages.
type WebSocketDialer struct {
	URL        string
	Header     http.Header
	HTTPClient *http.Client
	ReadLimit  int64
}

// NewWebSocketDialer creates a dialer for the given ws:// or wss:// URL.
func NewWebSocketDialer(url string) *WebSocketDialer {
	return &WebSocketDialer{URL: url, ReadLimit: defaultReadLimit}
}

// Dial implements Dialer.
func (d *WebSocketDialer) Dial(ctx context.Context) (Conn, error) {
	ws, _, err := websocket.Dial(ctx, d.URL, &websocket.DialOptions{
		HTTPHeader: d.Header,
		HTTPClient: d.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}
	if d.ReadLimit > 0 {
		ws.SetReadLimit(d.ReadLimit)
	}
	return &wsConn{ws: ws}, nil
}

// wsConn adapts websocket.Conn to Conn.
type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.ws.Read(ctx)
	if err != nil {
		if websocket.CloseStatus(err) != -1 {
			return nil, fmt.Errorf("%w: %w", ErrConnClosed, err)
		}
		return nil, err
	}
	return data, nil
}

func (c *wsConn) Write(ctx context.Context, frame []byte) error {
	return c.ws.Write(ctx, websocket.MessageText, frame)
}

func (c *wsConn) Close() error {
	err := c.ws.Close(websocket.StatusNormalClosure, "client closing")
	if err == nil || errors.Is(err, net.ErrClosed) || websocket.CloseStatus(err) != -1 {
		return nil
	}
	return err
}
