package transport

import (
	"context"
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrClosed          = errors.New("connection closed locally")
)

// MessageType distinguishes text and binary frames.
type MessageType int

const (
	TextMessage MessageType = iota + 1
	BinaryMessage
)

func (t MessageType) String() string {
	switch t {
	case TextMessage:
		return "text"
	case BinaryMessage:
		return "binary"
	default:
		return "unknown"
	}
}

// Message is an opaque payload. Data is never parsed or modified.
type Message struct {
	Type       MessageType
	Data       []byte
	ReceivedAt time.Time // Local receive time, zero for outbound messages
}

// Text builds an outbound text message.
func Text(s string) Message {
	return Message{Type: TextMessage, Data: []byte(s)}
}

// Binary builds an outbound binary message.
func Binary(b []byte) Message {
	return Message{Type: BinaryMessage, Data: b}
}

// Handler receives the events of one connection.
type Handler struct {
	OnMessage func(Message)
	OnClose   func(err error) // Called exactly once, after the last OnMessage
}

// Dialer opens physical connections.
type Dialer interface {
	// Dial blocks until the connection is open or fails.
	Dial(ctx context.Context, address string) (Conn, error)
}

// Conn is one open physical connection.
type Conn interface {
	// Listen starts event delivery. Only the first call has any effect.
	Listen(h Handler)

	// Send writes one message. Fails with ErrNotConnected after Close.
	Send(msg Message) error

	// Close closes the connection. Safe to call more than once.
	Close() error
}
