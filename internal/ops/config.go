package ops

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"accord/internal/gateway"
	"accord/internal/model/enum"
	"accord/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables applied on top of the file.
const (
	EnvToken    = "GATEWAY_TOKEN"
	EnvURL      = "GATEWAY_URL"
	EnvCompress = "GATEWAY_COMPRESS"
)

// FileConfig mirrors the config file layout. Unset fields keep gateway defaults.
type FileConfig struct {
	Token         string          `json:"token" yaml:"token"`
	URL           string          `json:"url" yaml:"url"`
	CompressQuery string          `json:"compressQuery" yaml:"compressQuery"`
	Compress      *bool           `json:"compress" yaml:"compress"`
	Transport     TransportConfig `json:"transport" yaml:"transport"`
	Session       SessionConfig   `json:"session" yaml:"session"`
	Identify      IdentifyConfig  `json:"identify" yaml:"identify"`
	Reconnect     ReconnectConfig `json:"reconnect" yaml:"reconnect"`
}

// TransportConfig describes the websocket dialer.
type TransportConfig struct {
	UserAgent        string `json:"userAgent" yaml:"userAgent"`
	MaxMessageSize   int64  `json:"maxMessageSize" yaml:"maxMessageSize"`
	HandshakeTimeout string `json:"handshakeTimeout" yaml:"handshakeTimeout"`
}

// SessionConfig describes session timing and queue sizes.
type SessionConfig struct {
	SettleDelay            string `json:"settleDelay" yaml:"settleDelay"`
	InvalidSessionCooldown string `json:"invalidSessionCooldown" yaml:"invalidSessionCooldown"`
	WriteQueueSize         int    `json:"writeQueueSize" yaml:"writeQueueSize"`
	LargeMessageBytes      *int   `json:"largeMessageBytes" yaml:"largeMessageBytes"`
}

// IdentifyConfig describes the identify announcement.
type IdentifyConfig struct {
	Capabilities int                 `json:"capabilities" yaml:"capabilities"`
	Properties   *gateway.Properties `json:"properties" yaml:"properties"`
	Status       string              `json:"status" yaml:"status"`
	AFK          bool                `json:"afk" yaml:"afk"`
	Activity     string              `json:"activity" yaml:"activity"`
	ActivityType string              `json:"activityType" yaml:"activityType"`
}

// ReconnectConfig describes the reconnection policy.
type ReconnectConfig struct {
	MaxAttempts          int      `json:"maxAttempts" yaml:"maxAttempts"`
	CompressionThreshold *int     `json:"compressionThreshold" yaml:"compressionThreshold"`
	QuickFailureLimit    *int     `json:"quickFailureLimit" yaml:"quickFailureLimit"`
	QuickFailureWindow   string   `json:"quickFailureWindow" yaml:"quickFailureWindow"`
	InflateErrorLimit    int      `json:"inflateErrorLimit" yaml:"inflateErrorLimit"`
	BackoffMin           string   `json:"backoffMin" yaml:"backoffMin"`
	BackoffMax           string   `json:"backoffMax" yaml:"backoffMax"`
	BackoffFactor        float64  `json:"backoffFactor" yaml:"backoffFactor"`
	BackoffJitter        *float64 `json:"backoffJitter" yaml:"backoffJitter"`
}

// Load reads a JSON or YAML config file, chosen by extension, and applies environment
// overrides. An empty path starts from the defaults.
func Load(path string) (gateway.Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with a custom environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (gateway.Config, error) {
	var file FileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return gateway.Config{}, errors.Wrap(err, "read config").With("path", path)
		}
		if err := Parse(data, filepath.Ext(path), &file); err != nil {
			return gateway.Config{}, errors.Wrap(err, "parse config").With("path", path)
		}
	}
	if err := applyEnv(&file, lookup); err != nil {
		return gateway.Config{}, err
	}
	cfg, err := Resolve(file)
	if err != nil {
		return gateway.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return gateway.Config{}, err
	}
	return cfg, nil
}

// Parse decodes data as YAML for .yaml/.yml and JSON otherwise.
func Parse(data []byte, ext string, out *FileConfig) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, out)
	default:
		return sonic.ConfigStd.Unmarshal(data, out)
	}
}

func applyEnv(file *FileConfig, lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}
	if v, ok := lookup(EnvToken); ok && v != "" {
		file.Token = v
	}
	if v, ok := lookup(EnvURL); ok && v != "" {
		file.URL = v
	}
	if v, ok := lookup(EnvCompress); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(exception.ErrGatewayInvalidConfig, strings.ToLower(EnvCompress)).With("value", v)
		}
		file.Compress = &b
	}
	return nil
}

// Resolve merges a file config over gateway defaults.
func Resolve(file FileConfig) (gateway.Config, error) {
	cfg := gateway.DefaultConfig()
	cfg.Token = strings.TrimSpace(file.Token)
	if file.URL != "" {
		cfg.URL = file.URL
	}
	if file.CompressQuery != "" {
		cfg.CompressQuery = file.CompressQuery
	}
	if file.Compress != nil {
		cfg.Compress = *file.Compress
	}

	if file.Transport.UserAgent != "" {
		cfg.UserAgent = file.Transport.UserAgent
	}
	if file.Transport.MaxMessageSize != 0 {
		cfg.MaxMessageSize = file.Transport.MaxMessageSize
	}
	durations := []struct {
		field string
		raw   string
		dst   *time.Duration
	}{
		{"transport.handshakeTimeout", file.Transport.HandshakeTimeout, &cfg.HandshakeTimeout},
		{"session.settleDelay", file.Session.SettleDelay, &cfg.SettleDelay},
		{"session.invalidSessionCooldown", file.Session.InvalidSessionCooldown, &cfg.InvalidSessionCooldown},
		{"reconnect.quickFailureWindow", file.Reconnect.QuickFailureWindow, &cfg.Reconnect.QuickFailureWindow},
		{"reconnect.backoffMin", file.Reconnect.BackoffMin, &cfg.Reconnect.Backoff.Min},
		{"reconnect.backoffMax", file.Reconnect.BackoffMax, &cfg.Reconnect.Backoff.Max},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return gateway.Config{}, errors.Wrap(exception.ErrGatewayInvalidConfig, d.field).With("value", d.raw)
		}
		*d.dst = v
	}

	if file.Session.WriteQueueSize != 0 {
		cfg.WriteQueueSize = file.Session.WriteQueueSize
	}
	if file.Session.LargeMessageBytes != nil {
		cfg.LargeMessageBytes = *file.Session.LargeMessageBytes
	}

	if file.Identify.Capabilities != 0 {
		cfg.Identify.Capabilities = file.Identify.Capabilities
	}
	if file.Identify.Properties != nil {
		cfg.Identify.Properties = *file.Identify.Properties
	}
	if file.Identify.Status != "" {
		cfg.Identify.Presence.Status = enum.Status(strings.ToLower(file.Identify.Status))
	}
	cfg.Identify.Presence.AFK = file.Identify.AFK
	cfg.Identify.Presence.Activity = file.Identify.Activity
	if file.Identify.ActivityType != "" {
		t, ok := enum.ParseActivityType(file.Identify.ActivityType)
		if !ok {
			return gateway.Config{}, errors.Wrap(exception.ErrGatewayInvalidConfig, "identify.activityType").With("value", file.Identify.ActivityType)
		}
		cfg.Identify.Presence.ActivityType = t
	}

	rc := file.Reconnect
	if rc.MaxAttempts != 0 {
		cfg.Reconnect.MaxAttempts = rc.MaxAttempts
	}
	if rc.CompressionThreshold != nil {
		cfg.Reconnect.CompressionThreshold = *rc.CompressionThreshold
	}
	if rc.QuickFailureLimit != nil {
		cfg.Reconnect.QuickFailureLimit = *rc.QuickFailureLimit
	}
	if rc.InflateErrorLimit != 0 {
		cfg.Reconnect.InflateErrorLimit = rc.InflateErrorLimit
	}
	if rc.BackoffFactor != 0 {
		cfg.Reconnect.Backoff.Factor = rc.BackoffFactor
	}
	if rc.BackoffJitter != nil {
		cfg.Reconnect.Backoff.Jitter = *rc.BackoffJitter
	}
	return cfg, nil
}
