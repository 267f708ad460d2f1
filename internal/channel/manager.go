// Package channel owns the persistent bidirectional connection to the
// translation backend: lifecycle, fixed-delay reconnection, and typed
// dispatch of inbound messages.
package channel

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ErrNotConnected is returned by Send while the channel is down. The
// manager does not buffer outbound messages; callers check Connected first.
var ErrNotConnected = errors.New("channel not connected")

// DefaultReconnectDelay is the fixed wait before a reconnect attempt.
// Deliberately not exponential: single-user sessions prefer fast
// recovery, reconnect storms under a backend outage are a known
// limitation.
const DefaultReconnectDelay = 3 * time.Second

// Handler receives every decoded inbound message.
type Handler interface {
	HandleChannelMessage(msg Message)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(msg Message)

// HandleChannelMessage implements Handler.
func (f HandlerFunc) HandleChannelMessage(msg Message) { f(msg) }

// State is a snapshot of the channel connectivity.
type State struct {
	Connected bool
	LastError string
}

// Manager maintains one channel per session: connecting -> open ->
// closed -> connecting (after delay). At most one reconnect timer is
// ever pending, and none survives Close.
type Manager struct {
	url       string
	sessionID string
	handler   Handler
	log       *logrus.Logger
	dialer    *websocket.Dialer

	// ReconnectDelay may be lowered in tests; fixed otherwise.
	ReconnectDelay time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	lastErr   string
	reconnect *time.Timer
	closed    bool
}

// NewManager builds a manager for the session. The channel endpoint is
// <channelURL>/<sessionID>.
func NewManager(channelURL, sessionID string, handler Handler, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		url:            channelURL + "/" + sessionID,
		sessionID:      sessionID,
		handler:        handler,
		log:            log,
		dialer:         &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		ReconnectDelay: DefaultReconnectDelay,
	}
}

// Connect dials the backend and starts the read loop. A dial failure
// sets the error state and schedules a reconnect.
func (m *Manager) Connect() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New("channel manager closed")
	}
	if m.connected {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	conn, resp, err := m.dialer.Dial(m.url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		m.mu.Lock()
		m.lastErr = err.Error()
		closed := m.closed
		m.mu.Unlock()
		m.log.WithFields(logrus.Fields{"session_id": m.sessionID, "status": status, "error": err}).Warn("channel dial failed")
		if !closed {
			m.scheduleReconnect()
		}
		return fmt.Errorf("channel dial: %w", err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = conn.Close()
		return errors.New("channel manager closed")
	}
	m.conn = conn
	m.connected = true
	m.lastErr = ""
	m.mu.Unlock()

	m.log.WithField("session_id", m.sessionID).Info("channel open")
	go m.readLoop(conn)
	return nil
}

// Connected reports whether the channel is open.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// State returns a connectivity snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{Connected: m.connected, LastError: m.lastErr}
}

// Send writes a JSON message over the open channel. It fails with
// ErrNotConnected while disconnected; nothing is queued.
func (m *Manager) Send(v any) error {
	m.mu.Lock()
	conn := m.conn
	connected := m.connected
	m.mu.Unlock()
	if !connected || conn == nil {
		return ErrNotConnected
	}
	if err := conn.WriteJSON(v); err != nil {
		return fmt.Errorf("channel send: %w", err)
	}
	return nil
}

// Close tears the channel down for good: the connection is closed and
// any pending reconnect timer canceled. No reconnects may follow.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.connected = false
	conn := m.conn
	m.conn = nil
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	m.log.WithField("session_id", m.sessionID).Info("channel closed")
	return nil
}

// readLoop consumes frames until the transport closes. Any read error
// ends the loop; the close handling then schedules the reconnect (an
// error never schedules one by itself).
func (m *Manager) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			m.handleClose(conn, err)
			return
		}
		msg, derr := decodeMessage(raw)
		if derr != nil {
			m.log.WithField("error", derr).Warn("undecodable channel frame")
			continue
		}
		if u, ok := msg.(Unknown); ok {
			m.log.WithField("type", u.Type).Debug("ignoring unknown channel message")
		}
		if m.handler != nil {
			m.handler.HandleChannelMessage(msg)
		}
	}
}

func (m *Manager) handleClose(conn *websocket.Conn, err error) {
	_ = conn.Close()
	m.mu.Lock()
	if m.conn == conn {
		m.conn = nil
		m.connected = false
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			m.lastErr = err.Error()
		}
	}
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return
	}
	m.log.WithFields(logrus.Fields{"session_id": m.sessionID, "error": err}).Warn("channel lost, scheduling reconnect")
	m.scheduleReconnect()
}

// scheduleReconnect arms the reconnect timer, replacing any pending one
// so at most a single attempt is ever scheduled.
func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if m.reconnect != nil {
		m.reconnect.Stop()
	}
	m.reconnect = time.AfterFunc(m.ReconnectDelay, func() {
		m.mu.Lock()
		closed := m.closed
		m.reconnect = nil
		m.mu.Unlock()
		if closed {
			return
		}
		if err := m.Connect(); err != nil {
			m.log.WithField("error", err).Debug("reconnect attempt failed")
		}
	})
}
