package channel

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type testBackend struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns []*websocket.Conn
	dials int32
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()
	b := &testBackend{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := b.upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade: %v", err)
			return
		}
		atomic.AddInt32(&b.dials, 1)
		b.mu.Lock()
		b.conns = append(b.conns, conn)
		b.mu.Unlock()
		// keep the read side alive so the client can write
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *testBackend) wsURL() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http")
}

func (b *testBackend) dialCount() int32 { return atomic.LoadInt32(&b.dials) }

func (b *testBackend) conn(i int) *websocket.Conn {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i >= len(b.conns) {
		return nil
	}
	return b.conns[i]
}

type recordingHandler struct {
	mu   sync.Mutex
	msgs []Message
}

func (h *recordingHandler) HandleChannelMessage(msg Message) {
	h.mu.Lock()
	h.msgs = append(h.msgs, msg)
	h.mu.Unlock()
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}

func (h *recordingHandler) at(i int) Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.msgs[i]
}

func waitCond(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestManager_ConnectAndDispatchTypedMessages(t *testing.T) {
	b := newTestBackend(t)
	h := &recordingHandler{}
	m := NewManager(b.wsURL(), "sess-1", h, nil)
	defer m.Close()

	if err := m.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !m.Connected() {
		t.Fatalf("expected connected")
	}

	conn := b.conn(0)
	frames := []string{
		`{"type":"status","status":"processing","message":"Analyzing technical terminology..."}`,
		`{"type":"translation_complete","data":{"term":"devops","explanation":"x","category":"Process","confidence":0.9,"business_impact":"y","related_terms":[],"processing_time":12}}`,
		`{"type":"error","message":"backend exploded"}`,
		`{"type":"telemetry","whatever":true}`,
	}
	for _, f := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if !waitCond(t, time.Second, func() bool { return h.count() == 4 }) {
		t.Fatalf("expected 4 dispatched messages, got %d", h.count())
	}
	if s, ok := h.at(0).(Status); !ok || s.Status != "processing" {
		t.Fatalf("expected status message, got %#v", h.at(0))
	}
	if tc, ok := h.at(1).(TranslationComplete); !ok || tc.Result.Term != "devops" || tc.Result.Confidence != 0.9 {
		t.Fatalf("expected translation_complete, got %#v", h.at(1))
	}
	if e, ok := h.at(2).(ErrorMessage); !ok || e.Message != "backend exploded" {
		t.Fatalf("expected error message, got %#v", h.at(2))
	}
	if u, ok := h.at(3).(Unknown); !ok || u.Type != "telemetry" {
		t.Fatalf("expected unknown message, got %#v", h.at(3))
	}
}

func TestManager_SendRequiresConnection(t *testing.T) {
	b := newTestBackend(t)
	m := NewManager(b.wsURL(), "sess-2", nil, nil)
	defer m.Close()

	if err := m.Send(NewTranslateEnvelope(reqFixture())); err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if err := m.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := m.Send(NewTranslateEnvelope(reqFixture())); err != nil {
		t.Fatalf("send while connected: %v", err)
	}
}

func TestManager_ReconnectsAfterAbnormalClose(t *testing.T) {
	b := newTestBackend(t)
	m := NewManager(b.wsURL(), "sess-3", nil, nil)
	m.ReconnectDelay = 50 * time.Millisecond
	defer m.Close()

	if err := m.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	// kill the server side abruptly
	_ = b.conn(0).Close()

	if !waitCond(t, time.Second, func() bool { return !m.Connected() || b.dialCount() >= 2 }) {
		t.Fatalf("expected disconnect to be observed")
	}
	if !waitCond(t, time.Second, func() bool { return b.dialCount() == 2 && m.Connected() }) {
		t.Fatalf("expected exactly one reconnect, dials=%d connected=%v", b.dialCount(), m.Connected())
	}
	st := m.State()
	if st.LastError != "" && !st.Connected {
		t.Fatalf("expected error cleared on reopen, got %+v", st)
	}
	// no extra dials from stray timers
	time.Sleep(150 * time.Millisecond)
	if b.dialCount() != 2 {
		t.Fatalf("expected no further dials, got %d", b.dialCount())
	}
}

func TestManager_CloseCancelsPendingReconnect(t *testing.T) {
	b := newTestBackend(t)
	m := NewManager(b.wsURL(), "sess-4", nil, nil)
	m.ReconnectDelay = 50 * time.Millisecond

	if err := m.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	_ = b.conn(0).Close()
	if !waitCond(t, time.Second, func() bool { return !m.Connected() }) {
		t.Fatalf("expected disconnect")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	if b.dialCount() != 1 {
		t.Fatalf("reconnect must not outlive the session, dials=%d", b.dialCount())
	}
	if m.Connected() {
		t.Fatalf("expected closed manager to stay disconnected")
	}
}

func TestManager_ErrorStateSetOnLoss(t *testing.T) {
	b := newTestBackend(t)
	m := NewManager(b.wsURL(), "sess-5", nil, nil)
	m.ReconnectDelay = time.Hour // keep it down for inspection
	defer m.Close()

	if err := m.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	_ = b.conn(0).Close()
	if !waitCond(t, time.Second, func() bool { return !m.Connected() }) {
		t.Fatalf("expected disconnect")
	}
	if st := m.State(); st.Connected || st.LastError == "" {
		t.Fatalf("expected lastError set while down, got %+v", st)
	}
}
