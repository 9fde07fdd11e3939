// Package realtime owns the client's push-channel connection: per-project
// subscription bookkeeping, a typed listener registry, and reconnection after
// abnormal closure.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/events"
)

const (
	DefaultReconnectDelay = 3 * time.Second

	dialTimeout  = 10 * time.Second
	writeTimeout = 5 * time.Second
	maxReadBytes = 1 << 20
	outboxSize   = 256
)

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// TokenSource supplies the access token passed on connect.
type TokenSource interface {
	AccessToken() string
}

// Handler receives inbound events. Handlers run on the read goroutine in
// arrival order and must not block for long.
type Handler func(events.Event)

// ListenerID identifies a registered handler for Off.
type ListenerID uint64

type listener struct {
	id ListenerID
	fn Handler
}

type Options struct {
	// URL is the push endpoint, e.g. ws://localhost:8080/ws.
	URL    string
	Tokens TokenSource
	// ReconnectDelay defaults to DefaultReconnectDelay.
	ReconnectDelay time.Duration
	HTTPClient     *http.Client
	Logger         *zerolog.Logger
}

// Manager is the single owner of the push connection for one session.
// All methods are safe for concurrent use.
type Manager struct {
	endpoint   string
	tokens     TokenSource
	delay      time.Duration
	httpClient *http.Client
	log        zerolog.Logger

	mu    sync.Mutex
	state State
	conn  *websocket.Conn
	// outbox feeds the writer goroutine of the current connection; nil while
	// disconnected. Network writes never happen under mu.
	outbox    chan []byte
	stopWrite chan struct{}
	// gen changes whenever the current connection attempt is abandoned, so
	// goroutines of an older connection can tell they are stale.
	gen        uint64
	cancelDial context.CancelFunc

	subs []int64 // insertion order

	listeners map[events.Type][]listener
	nextID    ListenerID

	timer    *time.Timer
	timerSeq uint64
}

func New(opts Options) *Manager {
	delay := opts.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Manager{
		endpoint:   opts.URL,
		tokens:     opts.Tokens,
		delay:      delay,
		httpClient: opts.HTTPClient,
		log:        logger.With().Str("component", "realtime").Logger(),
		listeners:  make(map[events.Type][]listener),
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscriptions returns the subscription set in insertion order.
func (m *Manager) Subscriptions() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.subs)
}

// ReconnectPending reports whether a reconnect timer is outstanding.
func (m *Manager) ReconnectPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timer != nil
}

// Connect opens the channel. It does nothing when a connection is already
// open or being opened, or when there is no access token. Failures are
// logged and leave the manager Disconnected with a reconnect scheduled.
func (m *Manager) Connect(ctx context.Context) {
	m.mu.Lock()
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return
	}
	token := ""
	if m.tokens != nil {
		token = m.tokens.AccessToken()
	}
	if token == "" {
		m.mu.Unlock()
		m.log.Debug().Msg("connect skipped: no access token")
		return
	}

	m.stopTimerLocked()
	m.state = StateConnecting
	m.gen++
	gen := m.gen
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	m.cancelDial = cancel
	m.mu.Unlock()

	endpoint, err := withToken(m.endpoint, token)
	var conn *websocket.Conn
	if err == nil {
		conn, _, err = websocket.Dial(dialCtx, endpoint, &websocket.DialOptions{HTTPClient: m.httpClient}) //nolint:bodyclose // closed by websocket.Dial on failure
	}
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		// Disconnect ran while dialing.
		if conn != nil {
			_ = conn.CloseNow()
		}
		return
	}
	m.cancelDial = nil

	if err != nil {
		m.state = StateDisconnected
		m.log.Warn().Err(err).Msg("connect failed")
		m.scheduleReconnectLocked()
		return
	}

	conn.SetReadLimit(maxReadBytes)
	m.conn = conn
	m.state = StateConnected
	m.startWriterLocked(conn)
	m.log.Info().Int("subscriptions", len(m.subs)).Msg("connected")

	for _, id := range m.subs {
		m.writeLocked(events.Subscribe(id))
	}

	go m.readLoop(gen, conn)
}

// Disconnect closes the channel, clears subscriptions and listeners, and
// cancels any pending reconnect. Calling it again is harmless.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.gen++
	m.stopTimerLocked()
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	conn := m.conn
	m.conn = nil
	m.stopWriterLocked()
	m.state = StateDisconnected
	m.subs = nil
	m.listeners = make(map[events.Type][]listener)
	m.mu.Unlock()

	if conn != nil {
		if err := conn.Close(websocket.StatusNormalClosure, "client disconnect"); err != nil {
			m.log.Debug().Err(err).Msg("close")
		}
	}
}

// Subscribe adds projectID to the subscription set. The subscribe message is
// sent now when connected, otherwise on the next successful connect.
func (m *Manager) Subscribe(projectID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if slices.Contains(m.subs, projectID) {
		return
	}
	m.subs = append(m.subs, projectID)
	if m.state == StateConnected {
		m.writeLocked(events.Subscribe(projectID))
	}
}

// Unsubscribe removes projectID from the subscription set.
func (m *Manager) Unsubscribe(projectID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := slices.Index(m.subs, projectID)
	if i < 0 {
		return
	}
	m.subs = slices.Delete(m.subs, i, i+1)
	if m.state == StateConnected {
		m.writeLocked(events.Unsubscribe(projectID))
	}
}

// Send writes msg when connected. Nothing is queued: the caller must re-send
// after a reconnect if delivery matters.
func (m *Manager) Send(msg events.ClientMessage) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateConnected {
		return false
	}
	return m.writeLocked(msg)
}

// On registers fn for eventType. Handlers for one type run in registration
// order.
func (m *Manager) On(eventType events.Type, fn Handler) ListenerID {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.listeners[eventType] = append(m.listeners[eventType], listener{id: m.nextID, fn: fn})
	return m.nextID
}

// Off removes the given listeners for eventType, or all of them when no IDs
// are passed.
func (m *Manager) Off(eventType events.Type, ids ...ListenerID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(ids) == 0 {
		delete(m.listeners, eventType)
		return
	}
	kept := m.listeners[eventType][:0:0]
	for _, l := range m.listeners[eventType] {
		if !slices.Contains(ids, l.id) {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		delete(m.listeners, eventType)
		return
	}
	m.listeners[eventType] = kept
}

// Listen registers a handler for the event type T.
func Listen[T events.Event](m *Manager, fn func(T)) ListenerID {
	var zero T
	return m.On(zero.EventType(), func(ev events.Event) {
		if e, ok := ev.(T); ok {
			fn(e)
		}
	})
}

// SessionSource reports identity changes. fn receives nil when the session
// ends. The returned func stops notifications.
type SessionSource interface {
	OnChange(fn func(*domain.User)) func()
}

// Follow ties the connection to the session lifecycle: connect when an
// identity appears, disconnect when it goes away.
func (m *Manager) Follow(ctx context.Context, s SessionSource) func() {
	return s.OnChange(func(u *domain.User) {
		if u == nil {
			m.Disconnect()
			return
		}
		go m.Connect(ctx)
	})
}

func (m *Manager) readLoop(gen uint64, conn *websocket.Conn) {
	ctx := context.Background()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			m.handleClose(gen, err)
			return
		}
		m.dispatch(data)
	}
}

func (m *Manager) handleClose(gen uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return
	}
	m.conn = nil
	m.stopWriterLocked()
	m.state = StateDisconnected

	code := websocket.CloseStatus(err)
	if code == websocket.StatusNormalClosure {
		m.log.Info().Msg("channel closed normally")
		return
	}
	m.log.Warn().Err(err).Int("code", int(code)).Msg("channel closed abnormally")
	m.scheduleReconnectLocked()
}

func (m *Manager) dispatch(data []byte) {
	ev, err := events.Decode(data)
	if err != nil {
		m.log.Warn().Err(err).Int("bytes", len(data)).Msg("dropping inbound message")
		return
	}

	m.mu.Lock()
	handlers := slices.Clone(m.listeners[ev.EventType()])
	m.mu.Unlock()

	for _, l := range handlers {
		m.invoke(l, ev)
	}
}

func (m *Manager) invoke(l listener, ev events.Event) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Str("type", string(ev.EventType())).Msg("listener panicked")
		}
	}()
	l.fn(ev)
}

// writeLocked queues msg for the writer goroutine. It fails when there is no
// connection or the outbox is full.
func (m *Manager) writeLocked(msg events.ClientMessage) bool {
	if m.outbox == nil {
		return false
	}
	data, err := json.Marshal(msg)
	if err != nil {
		m.log.Error().Err(err).Msg("encode client message")
		return false
	}
	select {
	case m.outbox <- data:
		return true
	default:
		m.log.Warn().Str("type", string(msg.Type)).Msg("send dropped: outbox full")
		return false
	}
}

// frameWriter is the part of *websocket.Conn the writer goroutine uses.
type frameWriter interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	CloseNow() error
}

func (m *Manager) startWriterLocked(w frameWriter) {
	m.outbox = make(chan []byte, outboxSize)
	m.stopWrite = make(chan struct{})
	go m.writeLoop(w, m.outbox, m.stopWrite)
}

func (m *Manager) stopWriterLocked() {
	if m.stopWrite != nil {
		close(m.stopWrite)
	}
	m.outbox = nil
	m.stopWrite = nil
}

// writeLoop writes queued frames in order. A failed write drops the
// connection so the read loop reports the close.
func (m *Manager) writeLoop(w frameWriter, outbox <-chan []byte, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		select {
		case <-stop:
			return
		case data := <-outbox:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := w.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				m.log.Warn().Err(err).Msg("send failed")
				_ = w.CloseNow()
				return
			}
		}
	}
}

func (m *Manager) scheduleReconnectLocked() {
	if m.timer != nil {
		return
	}
	m.timerSeq++
	seq := m.timerSeq
	m.timer = time.AfterFunc(m.delay, func() {
		m.mu.Lock()
		if seq != m.timerSeq {
			m.mu.Unlock()
			return
		}
		m.timer = nil
		m.mu.Unlock()
		m.Connect(context.Background())
	})
}

func (m *Manager) stopTimerLocked() {
	m.timerSeq++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func withToken(endpoint, token string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("realtime: parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
