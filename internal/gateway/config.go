package gateway

import (
	"net/url"
	"strings"
	"time"

	"accord/internal/model/enum"
	"accord/pkg/exception"
	"accord/pkg/websocket"

	"github.com/yanun0323/errors"
)

const (
	DefaultURL           = "wss://gateway.discord.gg/?encoding=json&v=10"
	DefaultCompressQuery = "compress=zlib-stream"
	DefaultCapabilities  = 4605
)

// Config configures a gateway session.
type Config struct {
	// Token authenticates the identify frame. Connect refuses to start without it.
	Token string
	// URL is the gateway endpoint including encoding and version.
	URL string
	// CompressQuery is appended to URL while compression is enabled.
	CompressQuery string
	// Compress is the initial compression mode.
	Compress bool

	UserAgent        string
	MaxMessageSize   int64
	HandshakeTimeout time.Duration

	// SettleDelay is waited before every connect.
	SettleDelay time.Duration
	// InvalidSessionCooldown is waited after the server invalidates the session.
	InvalidSessionCooldown time.Duration
	// WriteQueueSize bounds outbound control frames per connection.
	WriteQueueSize int
	// LargeMessageBytes logs inbound messages at or above this size.
	LargeMessageBytes int

	Identify  IdentifyConfig
	Reconnect ReconnectConfig
}

// IdentifyConfig is the client metadata announced on identify.
type IdentifyConfig struct {
	Capabilities int
	Properties   Properties
	Presence     PresenceConfig
}

type Properties struct {
	OS               string `json:"os" yaml:"os"`
	OSVersion        string `json:"os_version" yaml:"os_version"`
	Browser          string `json:"browser" yaml:"browser"`
	Device           string `json:"device" yaml:"device"`
	BrowserUserAgent string `json:"browser_user_agent" yaml:"browser_user_agent"`
	BrowserVersion   string `json:"browser_version" yaml:"browser_version"`
	HasClientMods    bool   `json:"has_client_mods" yaml:"has_client_mods"`
	SystemLocale     string `json:"system_locale" yaml:"system_locale"`
}

// PresenceConfig is the presence announced at identify. An empty Activity announces none.
type PresenceConfig struct {
	Status       enum.Status
	AFK          bool
	Activity     string
	ActivityType enum.ActivityType
}

// ReconnectConfig tunes the reconnection policy.
type ReconnectConfig struct {
	// MaxAttempts is the number of consecutive reconnects before compression is flipped on or the session fails.
	MaxAttempts int
	// CompressionThreshold is the number of total connection attempts that gates compression changes.
	CompressionThreshold int
	// QuickFailureLimit consecutive failures shorter than QuickFailureWindow enable compression early.
	// Zero disables the escalation.
	QuickFailureLimit  int
	QuickFailureWindow time.Duration
	// InflateErrorLimit decompression failures on one connection force a reconnect without compression.
	InflateErrorLimit int
	Backoff           websocket.Backoff
}

// DefaultConfig returns a config with every field but Token set.
func DefaultConfig() Config {
	return Config{
		URL:                    DefaultURL,
		CompressQuery:          DefaultCompressQuery,
		UserAgent:              websocket.DefaultUserAgent,
		MaxMessageSize:         websocket.DefaultMaxMessageSize,
		HandshakeTimeout:       websocket.DefaultDialerTimeout,
		SettleDelay:            500 * time.Millisecond,
		InvalidSessionCooldown: 5 * time.Second,
		WriteQueueSize:         64,
		LargeMessageBytes:      100 << 10,
		Identify: IdentifyConfig{
			Capabilities: DefaultCapabilities,
			Properties: Properties{
				OS:               "Mac OS X",
				OSVersion:        "10.15.7",
				Browser:          "Chrome",
				Device:           "accord",
				BrowserUserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36",
				BrowserVersion:   "139.0.0.0",
				SystemLocale:     "en-US",
			},
			Presence: PresenceConfig{
				Status: enum.StatusOnline,
			},
		},
		Reconnect: DefaultReconnectConfig(),
	}
}

func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxAttempts:          5,
		CompressionThreshold: 3,
		QuickFailureLimit:    2,
		QuickFailureWindow:   2 * time.Second,
		InflateErrorLimit:    3,
		Backoff:              websocket.DefaultBackoff(),
	}
}

// Validate checks the fields a session cannot run without. The token is checked by Connect.
func (c Config) Validate() error {
	invalid := func(field string) errors.Error {
		return errors.Wrap(exception.ErrGatewayInvalidConfig, field)
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "wss" && u.Scheme != "ws") || u.Host == "" {
		return invalid("url").With("url", c.URL)
	}
	switch {
	case c.WriteQueueSize <= 0:
		return invalid("write_queue_size")
	case c.MaxMessageSize <= 0:
		return invalid("max_message_size")
	case c.SettleDelay < 0:
		return invalid("settle_delay")
	case c.InvalidSessionCooldown < 0:
		return invalid("invalid_session_cooldown")
	case c.Reconnect.MaxAttempts <= 0:
		return invalid("reconnect.max_attempts")
	case c.Reconnect.CompressionThreshold < 0:
		return invalid("reconnect.compression_threshold")
	case c.Reconnect.QuickFailureLimit < 0:
		return invalid("reconnect.quick_failure_limit")
	case c.Reconnect.InflateErrorLimit <= 0:
		return invalid("reconnect.inflate_error_limit")
	case c.Identify.Presence.Status != "" && !c.Identify.Presence.Status.IsAvailable():
		return invalid("identify.presence.status").With("status", c.Identify.Presence.Status)
	}
	return nil
}

// Endpoint returns the gateway URL for the given compression mode.
func (c Config) Endpoint(compress bool) string {
	if !compress || c.CompressQuery == "" {
		return c.URL
	}
	sep := "?"
	if strings.Contains(c.URL, "?") {
		sep = "&"
	}
	return c.URL + sep + c.CompressQuery
}
