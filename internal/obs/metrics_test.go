package obs

import (
	"strings"
	"testing"
	"time"

	"accord/internal/model/enum"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.IncDialAttempt()
	m.IncDialAttempt()
	m.IncOpen()
	m.ObserveFrameIn(100)
	m.ObserveFrameIn(50)
	m.IncEvent(enum.EventKindMessage)
	m.IncEvent(enum.EventKindMessage)
	m.IncEvent(enum.EventKind(200))
	m.ObserveHeartbeatAck(10 * time.Millisecond)
	m.ObserveHeartbeatAck(30 * time.Millisecond)

	snap := m.Snapshot()
	require.Equal(t, uint64(2), snap.DialAttempts)
	require.Equal(t, uint64(1), snap.Opens)
	require.Equal(t, uint64(2), snap.FramesIn)
	require.Equal(t, uint64(150), snap.BytesIn)
	require.Equal(t, map[enum.EventKind]uint64{enum.EventKindMessage: 2}, snap.EventCounts)
	require.Equal(t, LatencySnapshot{Count: 2, Min: 10 * time.Millisecond, Max: 30 * time.Millisecond, Avg: 20 * time.Millisecond}, snap.HeartbeatLatency)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.IncOpen()
	m.IncEvent(enum.EventKindGuild)
	m.ObserveHeartbeatAck(time.Second)
	require.Equal(t, Snapshot{}, m.Snapshot())
}

func TestCollector(t *testing.T) {
	m := NewMetrics()
	m.IncReconnect()
	m.IncGiveUp()
	m.IncEvent(enum.EventKindPresence)

	c := NewCollector(m, prometheus.Labels{"client": "test"})
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	expected := `
# HELP gateway_reconnects_total Backoff reconnects scheduled.
# TYPE gateway_reconnects_total counter
gateway_reconnects_total{client="test"} 1
# HELP gateway_give_ups_total Sessions that exhausted their retries.
# TYPE gateway_give_ups_total counter
gateway_give_ups_total{client="test"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "gateway_reconnects_total", "gateway_give_ups_total"))
	require.Equal(t, 16+len(enum.EventKinds())+4, testutil.CollectAndCount(c))
}
