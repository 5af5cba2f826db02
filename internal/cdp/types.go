package cdp

import "encoding/json"

// Command represents a CDP command sent to the browser
type Command struct {
	ID     int                    `json:"id"`
	Method string                 `json:"method"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// Message is the decoded form of anything the browser sends back.
// A message carrying a result or error answers a command; a message
// carrying only a method is an unsolicited event.
// RawMessage is used because the result shape depends on the method,
// so we unmarshal it at the call site where the shape is known.
type Message struct {
	ID     int             `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ResponseError  `json:"error,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ResponseError represents an error in a CDP response
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// IsEvent reports whether the message is an unsolicited event rather
// than the answer to a command.
func (m *Message) IsEvent() bool {
	return m.Method != ""
}
