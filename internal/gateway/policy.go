package gateway

import (
	"time"

	"accord/pkg/websocket"
)

// Action is what the policy wants done after a connection is lost.
type Action uint8

const (
	// ActionIgnore means a reconnect is already scheduled.
	ActionIgnore Action = iota
	// ActionRetry schedules a reconnect after Decision.Delay.
	ActionRetry
	// ActionGiveUp stops retrying until the next explicit connect.
	ActionGiveUp
	// ActionStop means the server closed the connection on purpose; nothing is scheduled.
	ActionStop
)

func (a Action) String() string {
	switch a {
	case ActionIgnore:
		return "ignore"
	case ActionRetry:
		return "retry"
	case ActionGiveUp:
		return "give_up"
	case ActionStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Reason describes how a connection ended.
type Reason struct {
	Err error
	// Code is the close code when the peer sent one or the transport reported an abnormal close.
	Code    websocket.CloseCode
	HasCode bool
	// Elapsed is the time from dial to loss.
	Elapsed time.Duration
	// Inflate is set when the zlib-stream failed on this connection.
	Inflate bool
	// Stale is set when the heartbeat ack never arrived.
	Stale bool
}

// Terminal reports whether the server closed with a code that retrying cannot fix.
func (r Reason) Terminal() bool {
	if !r.HasCode {
		return false
	}
	switch r.Code {
	case 4004, 4010, 4011, 4012, 4013, 4014:
		return true
	default:
		return false
	}
}

// goingAway reports whether the server ended the connection intentionally.
func (r Reason) goingAway() bool {
	return r.HasCode && r.Code == websocket.CloseGoingAway
}

// abnormal is any loss other than an intentional close, including a missing status
// (1005), a dropped connection (1006) and application codes.
func (r Reason) abnormal() bool {
	return !r.goingAway()
}

// Decision is the outcome of Policy.OnDisconnect.
type Decision struct {
	Action   Action
	Delay    time.Duration
	Attempt  int
	Compress bool
	// Toggled is set when this decision changed the compression mode.
	Toggled bool
	// Terminal is set when a give up was caused by a terminal close code.
	Terminal bool
}

// Policy decides when and how to reconnect. It is not safe for concurrent use;
// the session actor owns it.
type Policy struct {
	cfg             ReconnectConfig
	defaultCompress bool

	attempts      int
	connections   int
	compress      bool
	quickFailures int
	pending       bool
}

func NewPolicy(cfg ReconnectConfig, compress bool) *Policy {
	return &Policy{
		cfg:             cfg,
		defaultCompress: compress,
		compress:        compress,
	}
}

// Compress returns the compression mode for the next dial.
func (p *Policy) Compress() bool { return p.compress }

// Attempts returns the consecutive reconnect attempts.
func (p *Policy) Attempts() int { return p.attempts }

// Connections returns the total connection attempts since the last reset.
func (p *Policy) Connections() int { return p.connections }

// Pending reports whether a reconnect is scheduled.
func (p *Policy) Pending() bool { return p.pending }

// OnDial records a connection attempt and clears the pending flag.
func (p *Policy) OnDial() {
	p.connections++
	p.pending = false
}

// OnOpen resets the attempt counter and the compression heuristics.
func (p *Policy) OnOpen() {
	p.attempts = 0
	p.quickFailures = 0
}

// Cancel drops a scheduled reconnect without touching counters.
func (p *Policy) Cancel() {
	p.pending = false
}

// Reset returns the policy to its initial state.
func (p *Policy) Reset() {
	p.attempts = 0
	p.connections = 0
	p.compress = p.defaultCompress
	p.quickFailures = 0
	p.pending = false
}

// OnDisconnect decides what follows a lost connection.
func (p *Policy) OnDisconnect(r Reason) Decision {
	if p.pending {
		return Decision{Action: ActionIgnore, Attempt: p.attempts, Compress: p.compress}
	}
	if r.Terminal() {
		return Decision{Action: ActionGiveUp, Attempt: p.attempts, Compress: p.compress, Terminal: true}
	}
	if r.goingAway() && !r.Inflate {
		return Decision{Action: ActionStop, Attempt: p.attempts, Compress: p.compress}
	}

	toggled := false
	if r.Inflate && p.compress {
		p.compress = false
		p.quickFailures = 0
		toggled = true
	} else if p.compress && r.abnormal() && p.connections <= p.cfg.CompressionThreshold {
		// Some intermediaries break the compressed stream; fall back early.
		p.compress = false
		p.attempts = 0
		toggled = true
	}

	if p.attempts >= p.cfg.MaxAttempts {
		if p.compress || p.connections <= p.cfg.CompressionThreshold {
			return Decision{Action: ActionGiveUp, Attempt: p.attempts, Compress: p.compress, Toggled: toggled}
		}
		p.compress = true
		p.attempts = 0
		p.quickFailures = 0
		toggled = true
	}

	if !toggled && !p.compress && p.cfg.QuickFailureLimit > 0 {
		if r.Elapsed < p.cfg.QuickFailureWindow {
			p.quickFailures++
		} else {
			p.quickFailures = 0
		}
		if p.quickFailures >= p.cfg.QuickFailureLimit && p.connections >= p.cfg.CompressionThreshold {
			p.compress = true
			p.quickFailures = 0
			toggled = true
		}
	}

	p.attempts++
	p.pending = true
	return Decision{
		Action:   ActionRetry,
		Delay:    p.cfg.Backoff.Next(p.attempts),
		Attempt:  p.attempts,
		Compress: p.compress,
		Toggled:  toggled,
	}
}
