package websocket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordConn struct {
	mu      sync.Mutex
	written [][]byte
	failAt  int
}

func (c *recordConn) Read(ctx context.Context) (MessageType, []byte, error) {
	<-ctx.Done()
	return 0, nil, ctx.Err()
}

func (c *recordConn) Write(_ context.Context, _ MessageType, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAt > 0 && len(c.written)+1 == c.failAt {
		return errors.New("broken pipe")
	}
	c.written = append(c.written, payload)
	return nil
}

func (c *recordConn) Close(CloseCode, string) error { return nil }

func (c *recordConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.written)
}

func TestWriterRejectsWhenFull(t *testing.T) {
	w := NewWriter(2)
	require.True(t, w.Send(MessageText, []byte("a")))
	require.True(t, w.Send(MessageText, []byte("b")))
	require.False(t, w.Send(MessageText, []byte("c")))
	require.Equal(t, 2, w.Len())
}

func TestWriterCopiesPayload(t *testing.T) {
	w := NewWriter(1)
	buf := []byte("abc")
	w.Send(MessageText, buf)
	buf[0] = 'z'
	frame := <-w.queue
	require.Equal(t, "abc", string(frame.Buf))
}

func TestWriterRunWritesInOrder(t *testing.T) {
	w := NewWriter(8)
	conn := &recordConn{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, conn) }()

	for _, s := range []string{"1", "2", "3"} {
		require.True(t, w.Send(MessageText, []byte(s)))
	}
	require.Eventually(t, func() bool { return conn.count() == 3 }, time.Second, 5*time.Millisecond)

	w.Close()
	require.NoError(t, <-done)
	require.Equal(t, "1", string(conn.written[0]))
	require.Equal(t, "3", string(conn.written[2]))
	require.False(t, w.Send(MessageText, []byte("late")))
}

func TestWriterRunStopsOnWriteError(t *testing.T) {
	w := NewWriter(4)
	conn := &recordConn{failAt: 1}
	w.Send(MessageText, []byte("x"))
	err := w.Run(context.Background(), conn)
	require.Error(t, err)
}

func TestWriterCloseIdempotent(t *testing.T) {
	w := NewWriter(1)
	w.Close()
	w.Close()
	var nilWriter *Writer
	nilWriter.Close()
	require.Equal(t, 0, nilWriter.Len())
}
