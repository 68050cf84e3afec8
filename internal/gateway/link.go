package gateway

import (
	"context"
	"time"

	"accord/internal/codec"
	"accord/pkg/websocket"
)

// link is one transport connection and everything scoped to it.
type link struct {
	id       string
	epoch    uint64
	conn     websocket.Conn
	codec    *codec.Codec
	writer   *websocket.Writer
	cancel   context.CancelFunc
	openedAt time.Time

	inflateErrors int
	inflateFailed bool
	unhealthy     bool
}

// close stops the link's goroutines, destroys its decompression context and closes the
// transport without blocking the caller.
func (l *link) close(code websocket.CloseCode, reason string) {
	l.cancel()
	l.writer.Close()
	l.codec.Close()
	conn := l.conn
	go func() {
		_ = conn.Close(code, reason)
	}()
}
