package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"accord/internal/gateway"
	"accord/internal/model/enum"
	"accord/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadWithEnv("", env(nil))
	require.NoError(t, err)
	require.Equal(t, gateway.DefaultConfig(), cfg)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "gateway.json", `{
		"token": "  abc  ",
		"compress": true,
		"session": {"settleDelay": "250ms", "writeQueueSize": 8, "largeMessageBytes": 0},
		"identify": {"status": "IDLE", "activity": "chess", "activityType": "competing"},
		"reconnect": {"maxAttempts": 7, "quickFailureLimit": 0, "backoffMin": "1s", "backoffMax": "10s"}
	}`)
	cfg, err := LoadWithEnv(path, env(nil))
	require.NoError(t, err)

	assert.Equal(t, "abc", cfg.Token)
	assert.True(t, cfg.Compress)
	assert.Equal(t, 250*time.Millisecond, cfg.SettleDelay)
	assert.Equal(t, 8, cfg.WriteQueueSize)
	assert.Zero(t, cfg.LargeMessageBytes)
	assert.Equal(t, enum.StatusIdle, cfg.Identify.Presence.Status)
	assert.Equal(t, "chess", cfg.Identify.Presence.Activity)
	assert.Equal(t, enum.ActivityCompeting, cfg.Identify.Presence.ActivityType)
	assert.Equal(t, 7, cfg.Reconnect.MaxAttempts)
	assert.Zero(t, cfg.Reconnect.QuickFailureLimit)
	assert.Equal(t, time.Second, cfg.Reconnect.Backoff.Min)
	assert.Equal(t, 10*time.Second, cfg.Reconnect.Backoff.Max)

	defaults := gateway.DefaultConfig()
	assert.Equal(t, defaults.URL, cfg.URL)
	assert.Equal(t, defaults.InvalidSessionCooldown, cfg.InvalidSessionCooldown)
	assert.Equal(t, defaults.Identify.Properties, cfg.Identify.Properties)
	assert.Equal(t, defaults.Reconnect.CompressionThreshold, cfg.Reconnect.CompressionThreshold)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "gateway.yaml", `
token: yaml-token
url: wss://gateway.example.com/?v=10
transport:
  userAgent: accord-test/2.0
  handshakeTimeout: 3s
identify:
  capabilities: 16
  properties:
    os: Linux
    browser: Firefox
    system_locale: de-DE
reconnect:
  compressionThreshold: 1
  inflateErrorLimit: 1
`)
	cfg, err := LoadWithEnv(path, env(nil))
	require.NoError(t, err)

	assert.Equal(t, "yaml-token", cfg.Token)
	assert.Equal(t, "wss://gateway.example.com/?v=10", cfg.URL)
	assert.Equal(t, "wss://gateway.example.com/?v=10&compress=zlib-stream", cfg.Endpoint(true))
	assert.Equal(t, "accord-test/2.0", cfg.UserAgent)
	assert.Equal(t, 3*time.Second, cfg.HandshakeTimeout)
	assert.Equal(t, 16, cfg.Identify.Capabilities)
	assert.Equal(t, "Linux", cfg.Identify.Properties.OS)
	assert.Equal(t, "de-DE", cfg.Identify.Properties.SystemLocale)
	assert.Equal(t, 1, cfg.Reconnect.CompressionThreshold)
	assert.Equal(t, 1, cfg.Reconnect.InflateErrorLimit)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "gateway.yml", "token: from-file\ncompress: true\n")
	cfg, err := LoadWithEnv(path, env(map[string]string{
		EnvToken:    "from-env",
		EnvURL:      "ws://localhost:9000/gateway",
		EnvCompress: "false",
	}))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Token)
	assert.Equal(t, "ws://localhost:9000/gateway", cfg.URL)
	assert.False(t, cfg.Compress)
}

func TestLoadErrorsNameTheField(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		field   string
	}{
		{name: "duration", content: `{"session": {"settleDelay": "soon"}}`, field: "session.settleDelay"},
		{name: "activity type", content: `{"identify": {"activityType": "dancing"}}`, field: "identify.activityType"},
		{name: "status", content: `{"identify": {"status": "busy"}}`, field: "identify.presence.status"},
		{name: "url", content: `{"url": "https://example.com"}`, field: "url"},
		{name: "attempts", content: `{"reconnect": {"maxAttempts": -1}}`, field: "reconnect.max_attempts"},
		{name: "compress env", content: `{}`, env: map[string]string{EnvCompress: "maybe"}, field: "gateway_compress"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, "gateway.json", tc.content)
			_, err := LoadWithEnv(path, env(tc.env))
			require.True(t, errors.Is(err, exception.ErrGatewayInvalidConfig), "%+v", err)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "missing.json"), env(nil))
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing.json")
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeFile(t, "gateway.json", `{"token": `)
	_, err := LoadWithEnv(path, env(nil))
	require.Error(t, err)
}

func TestParseActivityType(t *testing.T) {
	for name, want := range map[string]enum.ActivityType{
		"playing":   enum.ActivityPlaying,
		" Watching": enum.ActivityWatching,
		"4":         enum.ActivityCustom,
	} {
		got, ok := enum.ParseActivityType(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := enum.ParseActivityType("9")
	assert.False(t, ok)
}
