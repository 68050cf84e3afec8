package websocket

import "context"

// Conn is a minimal interface for a message oriented WebSocket connection.
// Read returns one complete message per call.
type Conn interface {
	Read(ctx context.Context) (msgType MessageType, payload []byte, err error)
	Write(ctx context.Context, msgType MessageType, payload []byte) error
	Close(code CloseCode, reason string) error
}

// Dialer creates new connections to the given URL.
type Dialer interface {
	Dial(ctx context.Context, rawURL string) (Conn, error)
}
