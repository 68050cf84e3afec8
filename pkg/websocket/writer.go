package websocket

import (
	"context"
	"sync/atomic"
)

// OutboundFrame represents a queued write payload.
type OutboundFrame struct {
	// MsgType is the WebSocket message type for the payload.
	MsgType MessageType
	// Buf is the payload buffer to send.
	Buf []byte
}

// Writer provides a bounded outbound queue drained by a single write loop,
// so a connection only ever has one goroutine writing to it. A full queue
// rejects the incoming frame.
type Writer struct {
	queue  chan OutboundFrame
	closed atomic.Bool
	done   chan struct{}
}

// NewWriter creates a Writer with a bounded queue.
func NewWriter(capacity int) *Writer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Writer{
		queue: make(chan OutboundFrame, capacity),
		done:  make(chan struct{}),
	}
}

// Send copies payload and queues it.
// It returns false when the writer is closed or the frame was not accepted.
func (w *Writer) Send(msgType MessageType, payload []byte) bool {
	if w == nil || w.closed.Load() {
		return false
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	return w.enqueue(OutboundFrame{MsgType: msgType, Buf: buf})
}

func (w *Writer) enqueue(frame OutboundFrame) bool {
	select {
	case w.queue <- frame:
		return true
	default:
		return false
	}
}

// Len returns the number of queued frames.
func (w *Writer) Len() int {
	if w == nil {
		return 0
	}
	return len(w.queue)
}

// Run writes queued frames to conn until ctx is done, the writer is closed or a write fails.
func (w *Writer) Run(ctx context.Context, conn Conn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil
		case frame := <-w.queue:
			if err := conn.Write(ctx, frame.MsgType, frame.Buf); err != nil {
				return err
			}
		}
	}
}

// Close stops accepting frames and drops anything still queued.
func (w *Writer) Close() {
	if w == nil || !w.closed.CompareAndSwap(false, true) {
		return
	}
	close(w.done)
	w.Drain()
}

// Drain clears the queue.
func (w *Writer) Drain() {
	for {
		select {
		case <-w.queue:
		default:
			return
		}
	}
}
