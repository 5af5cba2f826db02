package cdp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// Read deadlines per connection scope. Page targets get a longer window
// because a slow render can keep the browser silent for a while.
const (
	DefaultReadTimeout = 30 * time.Second
	PageReadTimeout    = 120 * time.Second
)

// Conn is a bidirectional CDP message channel to a single target.
// It is an interface so the client and the render workflow can be
// tested against fake connections without a browser.
type Conn interface {
	// ReadMessage blocks until the next message arrives and decodes it.
	ReadMessage() (*Message, error)

	// WriteCommand encodes and sends one command.
	WriteCommand(cmd Command) error

	// Close performs the websocket close handshake and drops the
	// underlying connection.
	Close() error
}

// wsConn is the production Conn over a gorilla websocket.
type wsConn struct {
	conn        *websocket.Conn
	readTimeout time.Duration
}

// Dial opens a websocket connection to a CDP target URL
// (ws://host:port/devtools/browser/<id> or .../devtools/page/<id>).
func Dial(wsURL string, readTimeout time.Duration) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}

	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	return &wsConn{conn: conn, readTimeout: readTimeout}, nil
}

func (c *wsConn) ReadMessage() (*Message, error) {
	// Arm the read deadline fresh for every message
	if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("websocket read failed: %w", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}

	return &msg, nil
}

func (c *wsConn) WriteCommand(cmd Command) error {
	if err := c.conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("websocket write failed: %w", err)
	}
	return nil
}

// Close sends a close frame and waits briefly for the peer's
// acknowledgment before dropping the connection. Some browser builds
// drop the socket without answering; the caller decides whether that
// matters.
func (c *wsConn) Close() error {
	deadline := time.Now().Add(2 * time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")

	writeErr := c.conn.WriteControl(websocket.CloseMessage, msg, deadline)

	// Read until the peer closes from its side or the deadline hits
	var readErr error
	if writeErr == nil {
		if err := c.conn.SetReadDeadline(deadline); err == nil {
			for {
				if _, _, err := c.conn.ReadMessage(); err != nil {
					if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
						readErr = err
					}
					break
				}
			}
		}
	}

	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("failed to close websocket: %w", err)
	}
	if writeErr != nil {
		return fmt.Errorf("close handshake write failed: %w", writeErr)
	}
	if readErr != nil {
		return fmt.Errorf("close handshake failed: %w", readErr)
	}
	return nil
}
