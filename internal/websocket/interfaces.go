package websocket

import (
	"context"
	"time"

	"linka/pkg/contracts/events"
)

// Connection is the subset of a WebSocket connection the client pumps use.
// It lets tests drive a Client without a network.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	RemoteAddr() string
}

// Publisher pushes events to connected clients. Services depend on this
// rather than on the Hub.
type Publisher interface {
	Publish(ctx context.Context, msgType events.MessageType, data interface{})
}
