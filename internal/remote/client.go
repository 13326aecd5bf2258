// ABOUTME: WebSocket client for the control endpoint
// ABOUTME: Sends one request at a time and waits for the matching response
package remote

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const defaultReplyTimeout = 10 * time.Second

// Client talks to a control endpoint
type Client struct {
	conn    *websocket.Conn
	mu      sync.Mutex
	timeout time.Duration
}

// Dial connects to the control endpoint at addr (host:port)
func Dial(addr, path string) (*Client, error) {
	if path == "" {
		path = DefaultPath
	}
	u := url.URL{Scheme: "ws", Host: addr, Path: path}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	return &Client{conn: conn, timeout: defaultReplyTimeout}, nil
}

// Send issues command and returns the server's reply
func (c *Client) Send(command string) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := Request{ID: uuid.New().String(), Command: command}

	c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if err := c.conn.WriteJSON(req); err != nil {
		return Response{}, fmt.Errorf("failed to send %s: %w", command, err)
	}

	c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	defer c.conn.SetReadDeadline(time.Time{})

	var resp Response
	if err := c.conn.ReadJSON(&resp); err != nil {
		return Response{}, fmt.Errorf("failed to read reply to %s: %w", command, err)
	}
	if resp.ID != req.ID {
		return resp, fmt.Errorf("reply id %q does not match request %q", resp.ID, req.ID)
	}
	return resp, nil
}

// Close sends a close frame and closes the connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	// the peer may already be gone; the close frame is best effort
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}
