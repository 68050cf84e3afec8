package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"accord/pkg/exception"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newEchoServer(t *testing.T, handle func(*gws.Conn)) string {
	t.Helper()
	upgrader := gws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent/1.0" {
			http.Error(w, "bad agent", http.StatusForbidden)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialerRoundTrip(t *testing.T) {
	url := newEchoServer(t, func(c *gws.Conn) {
		mt, payload, err := c.ReadMessage()
		if err != nil {
			return
		}
		_ = c.WriteMessage(mt, payload)
		_, _, _ = c.ReadMessage()
	})

	d := NewDialer(DialerConfig{UserAgent: "test-agent/1.0"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, err := d.Dial(ctx, url)
	require.NoError(t, err)
	defer conn.Close(CloseNormal, "")

	require.NoError(t, conn.Write(ctx, MessageText, []byte(`{"op":1}`)))
	mt, payload, err := conn.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, MessageText, mt)
	require.Equal(t, `{"op":1}`, string(payload))
}

func TestDialerReportsCloseCode(t *testing.T) {
	url := newEchoServer(t, func(c *gws.Conn) {
		_ = c.WriteMessage(gws.CloseMessage, gws.FormatCloseMessage(4004, "Authentication failed."))
	})

	conn, err := NewDialer(DialerConfig{UserAgent: "test-agent/1.0"}).Dial(context.Background(), url)
	require.NoError(t, err)
	defer conn.Close(CloseNormal, "")

	_, _, err = conn.Read(context.Background())
	code, ok := CloseCodeOf(err)
	require.True(t, ok)
	require.Equal(t, CloseCode(4004), code)
}

func TestDialerHandshakeRejected(t *testing.T) {
	url := newEchoServer(t, func(*gws.Conn) {})
	_, err := NewDialer(DialerConfig{UserAgent: "other"}).Dial(context.Background(), url)
	require.Error(t, err)
	require.Contains(t, err.Error(), "403")
}

func TestWriteRejectsCloseType(t *testing.T) {
	url := newEchoServer(t, func(c *gws.Conn) { _, _, _ = c.ReadMessage() })
	conn, err := NewDialer(DialerConfig{UserAgent: "test-agent/1.0"}).Dial(context.Background(), url)
	require.NoError(t, err)
	defer conn.Close(CloseGoingAway, "")
	require.ErrorIs(t, conn.Write(context.Background(), MessageClose, nil), exception.ErrWebSocketProtocol)
}

func TestClosedConnRejectsIO(t *testing.T) {
	url := newEchoServer(t, func(c *gws.Conn) { _, _, _ = c.ReadMessage() })
	conn, err := NewDialer(DialerConfig{UserAgent: "test-agent/1.0"}).Dial(context.Background(), url)
	require.NoError(t, err)

	require.NoError(t, conn.Close(CloseNormal, ""))
	require.ErrorIs(t, conn.Write(context.Background(), MessageText, []byte("late")), exception.ErrWebSocketConnectionClose)
	_, _, err = conn.Read(context.Background())
	require.ErrorIs(t, err, exception.ErrWebSocketConnectionClose)
}
