package gateway

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"accord/internal/codec"
	"accord/internal/obs"
	"accord/internal/schema"
	"accord/pkg/exception"
	"accord/pkg/websocket"

	"github.com/google/uuid"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const inboxSize = 256

type timerKind uint8

const (
	timerSettle timerKind = iota
	timerRetry
	timerCooldown
	timerHeartbeat
	timerAckDeadline
)

type (
	connectCmd    struct{}
	disconnectCmd struct{ done chan struct{} }
	snapshotCmd   struct{ reply chan Snapshot }
	timerMsg      struct {
		kind  timerKind
		epoch uint64
	}
	dialedMsg struct {
		epoch    uint64
		compress bool
		conn     websocket.Conn
		err      error
	}
	frameMsg struct {
		epoch   uint64
		msgType websocket.MessageType
		payload []byte
	}
	readFailedMsg struct {
		epoch uint64
		err   error
	}
	writeFailedMsg struct {
		epoch uint64
		err   error
	}
)

// Snapshot is the session's internal bookkeeping at one point in time.
type Snapshot struct {
	State             State
	Ready             bool
	ConnectionID      string
	Compress          bool
	Sequence          int64
	HasSequence       bool
	HeartbeatInterval time.Duration
	AwaitingAck       bool
	LastHeartbeat     time.Time
	LastAck           time.Time
	Attempts          int
	Connections       int
	ReconnectPending  bool
	Epoch             uint64
	Failure           error
}

// Option customizes a Session.
type Option func(*Session)

// WithDialer replaces the gorilla dialer.
func WithDialer(d websocket.Dialer) Option {
	return func(s *Session) { s.dialer = d }
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithJitter replaces the source of the first heartbeat's jitter, a value in [0, 1).
func WithJitter(f func() float64) Option {
	return func(s *Session) { s.jitter = f }
}

// WithMetrics records session metrics into m.
func WithMetrics(m *obs.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// Session is a gateway client. All connection state is owned by a single goroutine;
// public methods, timers and connection goroutines talk to it through its inbox.
type Session struct {
	cfg     Config
	dialer  websocket.Dialer
	clock   Clock
	jitter  func() float64
	metrics *obs.Metrics
	events  *Events

	inbox     chan any
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc

	state atomic.Uint32
	ready atomic.Bool

	// owned by run
	st        State
	epoch     uint64
	link      *link
	policy    *Policy
	hb        heartbeat
	seq       int64
	hasSeq    bool
	dialStart time.Time
	failure   error
	settle    Timer
	retry     Timer
	cooldown  Timer
}

// New validates cfg and starts the session in the Disconnected state.
func New(cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		cfg:    cfg,
		clock:  systemClock{},
		jitter: rand.Float64,
		inbox:  make(chan any, inboxSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dialer == nil {
		s.dialer = websocket.NewDialer(websocket.DialerConfig{
			UserAgent:        cfg.UserAgent,
			HandshakeTimeout: cfg.HandshakeTimeout,
			MaxMessageSize:   cfg.MaxMessageSize,
		})
	}
	s.events = newEvents(s.metrics)
	s.policy = NewPolicy(cfg.Reconnect, cfg.Compress)
	s.ctx, s.cancel = context.WithCancel(context.Background())

	go s.run()
	return s, nil
}

// Connect starts connecting after the settle delay. It is a no-op while a connection
// exists or a reconnect is scheduled.
func (s *Session) Connect() error {
	if s.cfg.Token == "" {
		return exception.ErrGatewayNoToken
	}
	if !s.post(connectCmd{}) {
		return exception.ErrGatewaySessionClosed
	}
	return nil
}

// Disconnect closes the connection, cancels every timer and resets the reconnect
// counters. It returns once the session is Disconnected and is safe to call repeatedly.
func (s *Session) Disconnect() {
	done := make(chan struct{})
	if !s.post(disconnectCmd{done: done}) {
		return
	}
	select {
	case <-done:
	case <-s.done:
	}
}

// Close disconnects, closes every subscription and stops the session.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.done
	return nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Ready reports whether the current connection delivered READY.
func (s *Session) Ready() bool {
	return s.ready.Load()
}

// Snapshot returns the session's bookkeeping.
func (s *Session) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	if !s.post(snapshotCmd{reply: reply}) {
		return Snapshot{State: s.State()}
	}
	select {
	case snap := <-reply:
		return snap
	case <-s.done:
		return Snapshot{State: s.State()}
	}
}

func (s *Session) post(msg any) bool {
	select {
	case <-s.quit:
		return false
	default:
	}
	select {
	case s.inbox <- msg:
		return true
	case <-s.quit:
		return false
	}
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			s.shutdown()
			return
		case msg := <-s.inbox:
			s.handle(msg)
		}
	}
}

func (s *Session) handle(msg any) {
	switch m := msg.(type) {
	case connectCmd:
		s.onConnect()
	case disconnectCmd:
		s.onDisconnect()
		close(m.done)
	case snapshotCmd:
		m.reply <- s.snapshot()
	case timerMsg:
		s.onTimer(m)
	case dialedMsg:
		s.onDialed(m)
	case frameMsg:
		s.onFrame(m)
	case readFailedMsg:
		s.onReadFailed(m)
	case writeFailedMsg:
		s.onWriteFailed(m)
	}
}

func (s *Session) shutdown() {
	s.onDisconnect()
	s.cancel()
	s.events.close()
	for {
		select {
		case msg := <-s.inbox:
			switch m := msg.(type) {
			case dialedMsg:
				if m.conn != nil {
					go m.conn.Close(websocket.CloseGoingAway, "")
				}
			case disconnectCmd:
				close(m.done)
			}
		default:
			logs.Info("gateway: session closed")
			return
		}
	}
}

func (s *Session) setState(st State) {
	if s.st == st {
		return
	}
	logs.Infof("gateway: state %s -> %s", s.st, st)
	s.st = st
	s.state.Store(uint32(st))
	s.events.publishState(st)
}

// schedule arms slot to deliver a timer message tagged with the current epoch.
// A non-positive delay is handled inline.
func (s *Session) schedule(slot *Timer, d time.Duration, kind timerKind) {
	stopTimer(slot)
	msg := timerMsg{kind: kind, epoch: s.epoch}
	if d <= 0 {
		s.onTimer(msg)
		return
	}
	*slot = s.clock.AfterFunc(d, func() {
		s.post(msg)
	})
}

func (s *Session) since(t time.Time) time.Duration {
	return s.clock.Now().Sub(t)
}

func (s *Session) onConnect() {
	switch {
	case s.st.Active():
		logs.Debugf("gateway: connect ignored in state %s", s.st)
		return
	case s.st == StateReconnecting:
		logs.Debugf("gateway: connect suppressed, reconnect already scheduled")
		return
	case s.st == StateFailed:
		s.policy.Reset()
		s.failure = nil
	}
	s.setState(StateConnecting)
	s.schedule(&s.settle, s.cfg.SettleDelay, timerSettle)
}

func (s *Session) onDisconnect() {
	stopTimer(&s.settle)
	stopTimer(&s.retry)
	stopTimer(&s.cooldown)
	s.teardown(websocket.CloseGoingAway, "")
	s.policy.Reset()
	s.seq, s.hasSeq = 0, false
	s.failure = nil
	s.setState(StateDisconnected)
}

func (s *Session) onTimer(m timerMsg) {
	if m.epoch != s.epoch {
		return
	}
	switch m.kind {
	case timerSettle:
		s.settle = nil
		s.dial()
	case timerRetry:
		s.retry = nil
		s.dial()
	case timerCooldown:
		s.cooldown = nil
		s.setState(StateConnecting)
		s.schedule(&s.settle, s.cfg.SettleDelay, timerSettle)
	case timerHeartbeat:
		s.hb.tick = nil
		s.onHeartbeatTick()
	case timerAckDeadline:
		s.hb.deadline = nil
		if s.link != nil && s.hb.overdue(s.clock.Now()) {
			s.stale()
		}
	}
}

func (s *Session) dial() {
	s.epoch++
	epoch := s.epoch
	compress := s.policy.Compress()
	s.policy.OnDial()
	s.dialStart = s.clock.Now()
	s.setState(StateConnecting)
	s.metrics.IncDialAttempt()

	endpoint := s.cfg.Endpoint(compress)
	logs.Infof("gateway: connection attempt #%d to %s (compress %t)", s.policy.Connections(), endpoint, compress)

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.HandshakeTimeout)
	go func() {
		defer cancel()
		conn, err := s.dialer.Dial(ctx, endpoint)
		if !s.post(dialedMsg{epoch: epoch, compress: compress, conn: conn, err: err}) && conn != nil {
			_ = conn.Close(websocket.CloseGoingAway, "")
		}
	}()
}

func (s *Session) onDialed(m dialedMsg) {
	if m.epoch != s.epoch {
		if m.conn != nil {
			go m.conn.Close(websocket.CloseGoingAway, "")
		}
		return
	}
	if m.err != nil {
		s.metrics.IncDialFailure()
		logs.Warnf("gateway: dial failed: %+v", m.err)
		s.epoch++
		s.lost(Reason{Err: m.err, Elapsed: s.since(s.dialStart)})
		return
	}
	s.open(m.conn, m.compress)
}

func (s *Session) open(conn websocket.Conn, compress bool) {
	ctx, cancel := context.WithCancel(s.ctx)
	l := &link{
		id:       uuid.NewString(),
		epoch:    s.epoch,
		conn:     conn,
		codec:    codec.New(compress),
		writer:   websocket.NewWriter(s.cfg.WriteQueueSize),
		cancel:   cancel,
		openedAt: s.clock.Now(),
	}
	s.link = l
	s.seq, s.hasSeq = 0, false
	s.hb = heartbeat{}
	s.policy.OnOpen()
	s.metrics.IncOpen()
	logs.Infof("gateway: connection %s open (compress %t)", l.id, compress)

	go s.writeLoop(ctx, l)
	go s.readLoop(ctx, l)
	s.setState(StateAwaitingHello)
}

func (s *Session) readLoop(ctx context.Context, l *link) {
	for {
		msgType, payload, err := l.conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.post(readFailedMsg{epoch: l.epoch, err: err})
			}
			return
		}
		if !s.post(frameMsg{epoch: l.epoch, msgType: msgType, payload: payload}) {
			return
		}
	}
}

func (s *Session) writeLoop(ctx context.Context, l *link) {
	if err := l.writer.Run(ctx, l.conn); err != nil && ctx.Err() == nil {
		s.post(writeFailedMsg{epoch: l.epoch, err: err})
	}
}

// teardown drops the current link and everything scoped to it. Callbacks issued
// before the epoch bump are ignored from here on.
func (s *Session) teardown(code websocket.CloseCode, reason string) {
	s.epoch++
	s.hb.stop()
	s.hb = heartbeat{}
	s.ready.Store(false)
	if l := s.link; l != nil {
		s.link = nil
		l.close(code, reason)
		logs.Infof("gateway: connection %s closed after %s", l.id, s.since(l.openedAt))
	}
}

// lost hands a dead connection to the reconnection policy.
func (s *Session) lost(reason Reason) {
	d := s.policy.OnDisconnect(reason)
	switch d.Action {
	case ActionIgnore:
		logs.Debugf("gateway: reconnect already scheduled")
	case ActionStop:
		logs.Infof("gateway: server closed the connection, not reconnecting")
		s.setState(StateDisconnected)
	case ActionGiveUp:
		s.metrics.IncGiveUp()
		if d.Terminal {
			s.failure = errors.Wrap(exception.ErrGatewayTerminalClose, reason.Err.Error()).With("code", reason.Code)
		} else {
			s.failure = errors.Wrap(exception.ErrGatewayRetriesExhausted, reason.Err.Error()).With("attempts", d.Attempt)
		}
		logs.Errorf("gateway: giving up: %+v", s.failure)
		s.setState(StateFailed)
	case ActionRetry:
		s.metrics.IncReconnect()
		if d.Toggled {
			s.metrics.IncCompressionToggle()
			logs.Infof("gateway: compression %t from next attempt", d.Compress)
		}
		logs.Infof("gateway: reconnect #%d in %s", d.Attempt, d.Delay)
		s.setState(StateReconnecting)
		s.schedule(&s.retry, d.Delay, timerRetry)
	}
}

func (s *Session) onReadFailed(m readFailedMsg) {
	l := s.link
	if l == nil || m.epoch != l.epoch {
		return
	}
	code, hasCode := websocket.CloseCodeOf(m.err)
	reason := Reason{
		Err:     m.err,
		Code:    code,
		HasCode: hasCode,
		Elapsed: s.since(s.dialStart),
		Inflate: l.inflateFailed,
	}
	logs.Warnf("gateway: connection %s lost: %+v", l.id, m.err)
	s.teardown(websocket.CloseGoingAway, "")
	s.lost(reason)
}

func (s *Session) onWriteFailed(m writeFailedMsg) {
	l := s.link
	if l == nil || m.epoch != l.epoch {
		return
	}
	s.unhealthy(l, m.err)
}

// unhealthy closes the transport so the read loop reports the loss. The reconnect is
// always driven by that read failure.
func (s *Session) unhealthy(l *link, err error) {
	if l.unhealthy {
		return
	}
	l.unhealthy = true
	logs.Warnf("gateway: connection %s unhealthy: %+v", l.id, err)
	conn := l.conn
	go func() {
		_ = conn.Close(websocket.CloseInternalError, "unhealthy")
	}()
}

func (s *Session) stale() {
	l := s.link
	s.metrics.IncStale()
	logs.Warnf("gateway: connection %s missed its heartbeat ack, reconnecting", l.id)
	reason := Reason{Err: exception.ErrGatewayStaleConnection, Stale: true, Elapsed: s.since(s.dialStart)}
	s.teardown(websocket.CloseInternalError, "heartbeat ack overdue")
	s.lost(reason)
}

func (s *Session) send(l *link, v any) bool {
	data, err := codec.Encode(v)
	if err != nil {
		logs.Errorf("gateway: %+v", err)
		return false
	}
	if !l.writer.Send(websocket.MessageText, data) {
		s.unhealthy(l, exception.ErrWebSocketQueueFull)
		return false
	}
	s.metrics.IncFrameOut()
	return true
}

func (s *Session) onFrame(m frameMsg) {
	l := s.link
	if l == nil || m.epoch != l.epoch {
		return
	}
	s.metrics.ObserveFrameIn(len(m.payload))
	if s.cfg.LargeMessageBytes > 0 && len(m.payload) >= s.cfg.LargeMessageBytes {
		logs.Infof("gateway: connection %s received a large message (%d bytes)", l.id, len(m.payload))
	}

	text, ok, err := l.codec.Decode(m.msgType, m.payload)
	if err != nil {
		if err != exception.ErrCodecInvalidUTF8 && l.codec.Compressed() {
			s.metrics.IncInflateError()
			l.inflateErrors++
			logs.Warnf("gateway: connection %s inflate failure %d/%d: %+v", l.id, l.inflateErrors, s.cfg.Reconnect.InflateErrorLimit, err)
			if l.inflateErrors >= s.cfg.Reconnect.InflateErrorLimit {
				l.inflateFailed = true
				s.unhealthy(l, err)
			}
			return
		}
		s.metrics.IncDecodeError()
		logs.Warnf("gateway: connection %s dropped frame: %+v", l.id, err)
		return
	}
	if !ok {
		return
	}

	frame, err := schema.Decode(text)
	if seq, ok := frame.Seq(); ok {
		s.trackSeq(seq)
	}
	if err != nil {
		s.metrics.IncDecodeError()
		logs.Warnf("gateway: connection %s dropped frame: %+v", l.id, err)
		return
	}
	s.dispatch(l, frame)
}

func (s *Session) trackSeq(seq int64) {
	if !s.hasSeq || seq > s.seq {
		s.seq = seq
		s.hasSeq = true
	}
}

func (s *Session) dispatch(l *link, frame schema.Frame) {
	switch p := frame.Payload.(type) {
	case *schema.Hello:
		s.onHello(l, p)
	case *schema.MessageCreate:
		s.events.publishMessage(p.Message)
	case *schema.PresenceUpdate:
		s.events.publishPresence(p.Presence())
	case *schema.Ready:
		s.onReady(p)
	case *schema.ReadySupplemental:
		for _, presence := range p.Presences() {
			s.events.publishPresence(presence)
		}
	case *schema.TypingStart:
		s.events.publishTyping(p.Typing)
	case schema.HeartbeatAck:
		rtt := s.hb.acked(s.clock.Now())
		s.metrics.ObserveHeartbeatAck(rtt)
	case schema.HeartbeatRequest:
		s.sendHeartbeat()
	case schema.Reconnect:
		s.onServerReconnect()
	case schema.InvalidSession:
		s.onInvalidSession(p)
	case *schema.Generic:
		logs.Debugf("gateway: unhandled frame op %d t %q", p.Op, p.Type)
	}
}

func (s *Session) onHello(l *link, hello *schema.Hello) {
	if s.st != StateAwaitingHello {
		logs.Warnf("gateway: connection %s unexpected hello in state %s", l.id, s.st)
		return
	}
	s.hb.stop()
	s.hb = heartbeat{interval: hello.Interval()}
	s.setState(StateIdentifying)
	if !s.send(l, identifyFrame(s.cfg)) {
		return
	}
	logs.Infof("gateway: connection %s identified, heartbeat every %s", l.id, s.hb.interval)
	s.setState(StateConnected)
	s.schedule(&s.hb.tick, firstDelay(s.hb.interval, s.jitter()), timerHeartbeat)
}

func (s *Session) onHeartbeatTick() {
	if s.link == nil || s.hb.interval <= 0 {
		return
	}
	if !s.sendHeartbeat() {
		return
	}
	s.schedule(&s.hb.tick, s.hb.interval, timerHeartbeat)
}

// sendHeartbeat sends {op:1, d:seq}, or declares the connection stale when the previous
// heartbeat went unacked for more than two intervals.
func (s *Session) sendHeartbeat() bool {
	l := s.link
	if l == nil {
		return false
	}
	now := s.clock.Now()
	if s.hb.stale(now) {
		s.stale()
		return false
	}
	var seq *int64
	if s.hasSeq {
		v := s.seq
		seq = &v
	}
	if !s.send(l, schema.Heartbeat(seq)) {
		return false
	}
	s.metrics.IncHeartbeatSent()
	if s.hb.sent(now) && s.hb.interval > 0 {
		s.schedule(&s.hb.deadline, 2*s.hb.interval, timerAckDeadline)
	}
	return true
}

func (s *Session) onReady(ready *schema.Ready) {
	for _, u := range ready.Users {
		s.events.publishUser(u.ID, u)
	}
	s.events.publishUser(Me, ready.User)
	for _, g := range ready.Guilds {
		s.events.publishGuild(g)
	}
	s.ready.Store(true)
	logs.Infof("gateway: ready as %s with %d users and %d guilds", ready.User.DisplayName(), len(ready.Users), len(ready.Guilds))
}

func (s *Session) onServerReconnect() {
	s.metrics.IncServerReconnect()
	logs.Warnf("gateway: server requested a reconnect")
	s.teardown(websocket.CloseGoingAway, "reconnect requested")
	s.policy.Cancel()
	s.setState(StateConnecting)
	s.schedule(&s.settle, s.cfg.SettleDelay, timerSettle)
}

func (s *Session) onInvalidSession(p schema.InvalidSession) {
	s.metrics.IncInvalidSession()
	logs.Warnf("gateway: invalid session (resumable %t), reconnecting in %s", p.Resumable, s.cfg.InvalidSessionCooldown)
	s.teardown(websocket.CloseGoingAway, "invalid session")
	s.policy.Cancel()
	s.setState(StateReconnecting)
	s.schedule(&s.cooldown, s.cfg.InvalidSessionCooldown, timerCooldown)
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		State:             s.st,
		Ready:             s.ready.Load(),
		Compress:          s.policy.Compress(),
		Sequence:          s.seq,
		HasSequence:       s.hasSeq,
		HeartbeatInterval: s.hb.interval,
		AwaitingAck:       s.hb.awaiting,
		LastHeartbeat:     s.hb.lastSent,
		LastAck:           s.hb.lastAck,
		Attempts:          s.policy.Attempts(),
		Connections:       s.policy.Connections(),
		ReconnectPending:  s.policy.Pending(),
		Epoch:             s.epoch,
		Failure:           s.failure,
	}
	if s.link != nil {
		snap.ConnectionID = s.link.id
		snap.Compress = s.link.codec.Compressed()
	}
	return snap
}
