package gateway

import "time"

// heartbeat is the liveness bookkeeping of one connection.
type heartbeat struct {
	interval time.Duration
	// awaiting is set from the first unacked send until the next ack.
	awaiting bool
	// requested is when the outstanding heartbeat was first sent.
	requested time.Time
	lastSent  time.Time
	lastAck   time.Time

	tick     Timer
	deadline Timer
}

func (h *heartbeat) stop() {
	stopTimer(&h.tick)
	stopTimer(&h.deadline)
}

// stale reports whether the outstanding heartbeat has gone unacked for more than two intervals.
func (h *heartbeat) stale(now time.Time) bool {
	return h.awaiting && h.interval > 0 && now.Sub(h.requested) > 2*h.interval
}

// overdue is the ack deadline check, inclusive of the deadline itself.
func (h *heartbeat) overdue(now time.Time) bool {
	return h.awaiting && h.interval > 0 && now.Sub(h.requested) >= 2*h.interval
}

// sent records a heartbeat. It returns true when this send started a new outstanding wait.
func (h *heartbeat) sent(now time.Time) bool {
	h.lastSent = now
	if h.awaiting {
		return false
	}
	h.awaiting = true
	h.requested = now
	return true
}

// acked clears the outstanding wait and returns the round trip since the last send.
func (h *heartbeat) acked(now time.Time) time.Duration {
	h.awaiting = false
	h.lastAck = now
	stopTimer(&h.deadline)
	if h.lastSent.IsZero() {
		return 0
	}
	return now.Sub(h.lastSent)
}

// firstDelay spreads the first beat over [0, interval).
func firstDelay(interval time.Duration, jitter float64) time.Duration {
	if jitter < 0 {
		jitter = 0
	}
	if jitter >= 1 {
		jitter = 0.999999
	}
	return time.Duration(float64(interval) * jitter)
}
