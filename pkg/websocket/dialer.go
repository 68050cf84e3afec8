package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"accord/pkg/exception"

	gws "github.com/gorilla/websocket"
	yerrors "github.com/yanun0323/errors"
)

const (
	DefaultDialerTimeout  = 10 * time.Second
	DefaultMaxMessageSize = 16 << 20
	DefaultUserAgent      = "accord/1.0"

	closeWriteTimeout = time.Second
)

// DialerConfig configures the gorilla backed dialer.
type DialerConfig struct {
	// UserAgent is sent on the upgrade request.
	UserAgent string
	// Header carries extra upgrade request headers.
	Header http.Header
	// HandshakeTimeout bounds the TCP, TLS and upgrade handshake.
	HandshakeTimeout time.Duration
	// MaxMessageSize is the largest inbound message accepted, in bytes.
	MaxMessageSize int64
}

type dialer struct {
	ws        *gws.Dialer
	header    http.Header
	readLimit int64
}

// NewDialer creates a Dialer that opens TLS WebSocket connections with gorilla/websocket.
func NewDialer(cfg DialerConfig) Dialer {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultDialerTimeout
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	header := cfg.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set("User-Agent", cfg.UserAgent)

	return &dialer{
		ws: &gws.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
			ReadBufferSize:   32 << 10,
			WriteBufferSize:  4 << 10,
		},
		header:    header,
		readLimit: cfg.MaxMessageSize,
	}
}

func (d *dialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	conn, resp, err := d.ws.DialContext(ctx, rawURL, d.header.Clone())
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, yerrors.Wrapf(err, "websocket: handshake failed with status %d", resp.StatusCode)
		}
		return nil, err
	}
	conn.SetReadLimit(d.readLimit)
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn      *gws.Conn
	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func (c *wsConn) Read(ctx context.Context) (MessageType, []byte, error) {
	if c.closed.Load() {
		return 0, nil, exception.ErrWebSocketConnectionClose
	}
	if err := setDeadline(ctx, c.conn.SetReadDeadline); err != nil {
		return 0, nil, err
	}
	msgType, payload, err := c.conn.ReadMessage()
	if err != nil {
		if c.closed.Load() {
			return 0, nil, exception.ErrWebSocketConnectionClose
		}
		return 0, nil, translateError(err)
	}
	return MessageType(msgType), payload, nil
}

func (c *wsConn) Write(ctx context.Context, msgType MessageType, payload []byte) error {
	if c.closed.Load() {
		return exception.ErrWebSocketConnectionClose
	}
	switch msgType {
	case MessageText, MessageBinary:
	case MessagePing, MessagePong:
		return c.conn.WriteControl(int(msgType), payload, controlDeadline(ctx))
	default:
		return exception.ErrWebSocketProtocol
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := setDeadline(ctx, c.conn.SetWriteDeadline); err != nil {
		return err
	}
	return translateError(c.conn.WriteMessage(int(msgType), payload))
}

func (c *wsConn) Close(code CloseCode, reason string) error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		_ = c.conn.WriteControl(gws.CloseMessage, gws.FormatCloseMessage(int(code), reason), time.Now().Add(closeWriteTimeout))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// CloseError reports the close frame that ended a connection.
type CloseError struct {
	Code CloseCode
	Text string
}

func (e *CloseError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("websocket: close %d", e.Code)
	}
	return fmt.Sprintf("websocket: close %d (%s)", e.Code, e.Text)
}

// CloseCodeOf extracts the close code from err when the connection ended with a close frame
// or an abnormal closure.
func CloseCodeOf(err error) (CloseCode, bool) {
	var ce *CloseError
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return 0, false
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	var ce *gws.CloseError
	if errors.As(err, &ce) {
		return &CloseError{Code: CloseCode(ce.Code), Text: ce.Text}
	}
	return err
}

func controlDeadline(ctx context.Context) time.Time {
	if ctx != nil {
		if deadline, ok := ctx.Deadline(); ok {
			return deadline
		}
	}
	return time.Now().Add(closeWriteTimeout)
}

func setDeadline(ctx context.Context, set func(time.Time) error) error {
	if ctx == nil {
		return set(time.Time{})
	}
	if deadline, ok := ctx.Deadline(); ok {
		return set(deadline)
	}
	if ctx.Err() != nil {
		return set(time.Now())
	}
	return set(time.Time{})
}
