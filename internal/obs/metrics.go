package obs

import (
	"sync/atomic"
	"time"

	"accord/internal/model/enum"
)

const maxEventKind = int(enum.EventKindState)

// Metrics collects lightweight counters and latency stats for a gateway session.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	dialAttempts       uint64
	dialFailures       uint64
	opens              uint64
	framesIn           uint64
	bytesIn            uint64
	framesOut          uint64
	decodeErrors       uint64
	inflateErrors      uint64
	heartbeatsSent     uint64
	heartbeatsAcked    uint64
	staleConnections   uint64
	reconnects         uint64
	serverReconnects   uint64
	invalidSessions    uint64
	compressionToggles uint64
	giveUps            uint64
	eventCounts        [maxEventKind + 1]uint64

	heartbeatLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	DialAttempts       uint64
	DialFailures       uint64
	Opens              uint64
	FramesIn           uint64
	BytesIn            uint64
	FramesOut          uint64
	DecodeErrors       uint64
	InflateErrors      uint64
	HeartbeatsSent     uint64
	HeartbeatsAcked    uint64
	StaleConnections   uint64
	Reconnects         uint64
	ServerReconnects   uint64
	InvalidSessions    uint64
	CompressionToggles uint64
	GiveUps            uint64
	EventCounts        map[enum.EventKind]uint64
	HeartbeatLatency   LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncDialAttempt() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.dialAttempts, 1)
}

func (m *Metrics) IncDialFailure() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.dialFailures, 1)
}

func (m *Metrics) IncOpen() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.opens, 1)
}

// ObserveFrameIn counts an inbound transport message and its size.
func (m *Metrics) ObserveFrameIn(size int) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.framesIn, 1)
	atomic.AddUint64(&m.bytesIn, uint64(size))
}

func (m *Metrics) IncFrameOut() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.framesOut, 1)
}

func (m *Metrics) IncDecodeError() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.decodeErrors, 1)
}

func (m *Metrics) IncInflateError() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.inflateErrors, 1)
}

func (m *Metrics) IncHeartbeatSent() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.heartbeatsSent, 1)
}

// ObserveHeartbeatAck counts an ack and records the round trip since the heartbeat was sent.
func (m *Metrics) ObserveHeartbeatAck(rtt time.Duration) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.heartbeatsAcked, 1)
	m.heartbeatLatency.Observe(rtt)
}

func (m *Metrics) IncStale() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.staleConnections, 1)
}

func (m *Metrics) IncReconnect() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.reconnects, 1)
}

func (m *Metrics) IncServerReconnect() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.serverReconnects, 1)
}

func (m *Metrics) IncInvalidSession() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.invalidSessions, 1)
}

func (m *Metrics) IncCompressionToggle() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.compressionToggles, 1)
}

func (m *Metrics) IncGiveUp() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.giveUps, 1)
}

// IncEvent counts a published domain event.
func (m *Metrics) IncEvent(kind enum.EventKind) {
	if m == nil {
		return
	}
	idx := int(kind)
	if idx >= 0 && idx < len(m.eventCounts) {
		atomic.AddUint64(&m.eventCounts[idx], 1)
	}
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	eventCounts := make(map[enum.EventKind]uint64)
	for i := range m.eventCounts {
		if v := atomic.LoadUint64(&m.eventCounts[i]); v > 0 {
			eventCounts[enum.EventKind(i)] = v
		}
	}
	return Snapshot{
		DialAttempts:       atomic.LoadUint64(&m.dialAttempts),
		DialFailures:       atomic.LoadUint64(&m.dialFailures),
		Opens:              atomic.LoadUint64(&m.opens),
		FramesIn:           atomic.LoadUint64(&m.framesIn),
		BytesIn:            atomic.LoadUint64(&m.bytesIn),
		FramesOut:          atomic.LoadUint64(&m.framesOut),
		DecodeErrors:       atomic.LoadUint64(&m.decodeErrors),
		InflateErrors:      atomic.LoadUint64(&m.inflateErrors),
		HeartbeatsSent:     atomic.LoadUint64(&m.heartbeatsSent),
		HeartbeatsAcked:    atomic.LoadUint64(&m.heartbeatsAcked),
		StaleConnections:   atomic.LoadUint64(&m.staleConnections),
		Reconnects:         atomic.LoadUint64(&m.reconnects),
		ServerReconnects:   atomic.LoadUint64(&m.serverReconnects),
		InvalidSessions:    atomic.LoadUint64(&m.invalidSessions),
		CompressionToggles: atomic.LoadUint64(&m.compressionToggles),
		GiveUps:            atomic.LoadUint64(&m.giveUps),
		EventCounts:        eventCounts,
		HeartbeatLatency:   m.heartbeatLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
