package cdp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
)

// Client drives one CDP target over a single connection.
//
// Precondition: one command in flight per connection. The browser echoes
// ids back but never interprets them, and because calls are strictly
// sequential here there is never ambiguity about which command a result
// answers, so no id-keyed correlation table is kept.
type Client struct {
	conn   Conn
	nextID int
}

// NewClient wraps an open connection
func NewClient(conn Conn) *Client {
	return &Client{conn: conn, nextID: 1}
}

// Call sends one command and blocks until its result arrives.
// Events that arrive in between are logged and skipped; an error
// response becomes a *ProtocolError carrying the remote code and
// message; a message that is neither event, result, nor error fails
// with ErrUnknownResponse.
func (c *Client) Call(method string, params map[string]interface{}) (json.RawMessage, error) {
	cmd := Command{
		ID:     c.nextID,
		Method: method,
		Params: params,
	}
	c.nextID++

	if err := c.conn.WriteCommand(cmd); err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", method, err)
	}

	// Receive loop: drain events until the answer shows up.
	// FIFO delivery per connection guarantees we never skip past it.
	for {
		msg, err := c.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to read response to %s: %w", method, err)
		}

		if msg.IsEvent() {
			slog.Debug("skipping event while awaiting result", "event", msg.Method, "call", method)
			continue
		}

		if msg.Error != nil {
			return nil, &ProtocolError{Code: msg.Error.Code, Message: msg.Error.Message}
		}

		if msg.Result != nil {
			return msg.Result, nil
		}

		return nil, fmt.Errorf("%w: no method, result, or error in reply to %s", ErrUnknownResponse, method)
	}
}

// AwaitEvent blocks until an event named name arrives whose params
// contain every key/value pair in match. A subset test, not exact
// equality: waiting with {"frameId": "F1"} means "the frame we
// navigated stopped loading", not "some frame stopped". A nil match
// accepts the first event with that name. Returns the event's params.
func (c *Client) AwaitEvent(name string, match map[string]interface{}) (json.RawMessage, error) {
	for {
		msg, err := c.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to read while waiting for %s: %w", name, err)
		}

		// Only events are expected here; a stray result would mean a
		// command was left unanswered, which the sequential calling
		// discipline rules out.
		if !msg.IsEvent() {
			return nil, fmt.Errorf("unexpected non-event message while waiting for %s", name)
		}

		if msg.Method != name {
			slog.Debug("skipping event", "event", msg.Method, "waiting_for", name)
			continue
		}

		if len(match) > 0 {
			var params map[string]interface{}
			if err := json.Unmarshal(msg.Params, &params); err != nil {
				return nil, fmt.Errorf("failed to decode %s params: %w", name, err)
			}
			if !paramsMatch(params, match) {
				slog.Debug("skipping non-matching event", "event", name)
				continue
			}
		}

		return msg.Params, nil
	}
}

// paramsMatch reports whether every key/value pair in match is present
// with an equal value in params.
func paramsMatch(params, match map[string]interface{}) bool {
	for key, want := range match {
		got, ok := params[key]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// Close closes the underlying connection
func (c *Client) Close() error {
	return c.conn.Close()
}
