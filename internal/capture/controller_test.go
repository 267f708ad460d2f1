package capture

import (
	"errors"
	"testing"
	"time"
)

type fakeRecognizer struct {
	events   chan Event
	started  int
	stopped  int
	startErr error
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{events: make(chan Event, 16)}
}

func (f *fakeRecognizer) Start() error {
	f.started++
	return f.startErr
}

func (f *fakeRecognizer) Stop() error {
	f.stopped++
	f.events <- Event{Kind: KindEnd}
	return nil
}

func (f *fakeRecognizer) Events() <-chan Event { return f.events }

func waitFinal(t *testing.T, c *Controller) string {
	t.Helper()
	select {
	case got := <-c.Finalized():
		return got
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for finalized transcript")
		return ""
	}
}

func TestController_FinalizesOnEndEdge(t *testing.T) {
	rec := newFakeRecognizer()
	c := NewController(rec, nil)
	defer c.Close()

	c.StartListening()
	rec.events <- Event{Kind: KindResult, Transcript: "micro"}
	rec.events <- Event{Kind: KindResult, Transcript: "microservices"}
	c.StopListening()

	if got := waitFinal(t, c); got != "microservices" {
		t.Fatalf("expected final transcript to be last full result, got %q", got)
	}
	st := c.State()
	if st.Listening {
		t.Fatalf("expected idle after end")
	}
	if st.Transcript != "microservices" {
		t.Fatalf("expected transcript retained, got %q", st.Transcript)
	}
}

func TestController_NoFinalForEmptyTranscript(t *testing.T) {
	rec := newFakeRecognizer()
	c := NewController(rec, nil)
	defer c.Close()

	c.StartListening()
	c.StopListening()
	select {
	case got := <-c.Finalized():
		t.Fatalf("expected no finalized transcript, got %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestController_StartIsNoOpWhileListening(t *testing.T) {
	rec := newFakeRecognizer()
	c := NewController(rec, nil)
	defer c.Close()

	c.StartListening()
	c.StartListening()
	if rec.started != 1 {
		t.Fatalf("expected a single recognizer start, got %d", rec.started)
	}
}

func TestController_StopWhileIdleIsNoOp(t *testing.T) {
	rec := newFakeRecognizer()
	c := NewController(rec, nil)
	defer c.Close()

	before := c.State()
	c.StopListening()
	after := c.State()
	if rec.stopped != 0 {
		t.Fatalf("recognizer must not be stopped while idle")
	}
	if before != after {
		t.Fatalf("state changed on idle stop: %+v -> %+v", before, after)
	}
}

func TestController_Unsupported(t *testing.T) {
	c := NewController(nil, nil)
	defer c.Close()

	st := c.State()
	if st.Supported {
		t.Fatalf("expected unsupported")
	}
	if !errors.Is(st.Err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", st.Err)
	}
	c.StartListening()
	if c.State().Listening {
		t.Fatalf("capture must stay disabled when unsupported")
	}
}

func TestController_StartFailureReturnsToIdle(t *testing.T) {
	rec := newFakeRecognizer()
	rec.startErr = errors.New("microphone busy")
	c := NewController(rec, nil)
	defer c.Close()

	c.StartListening()
	st := c.State()
	if st.Listening {
		t.Fatalf("expected idle after start failure")
	}
	if !errors.Is(st.Err, ErrCaptureFailed) {
		t.Fatalf("expected ErrCaptureFailed, got %v", st.Err)
	}
	// not auto-retried: a second explicit start is allowed
	rec.startErr = nil
	c.StartListening()
	if !c.State().Listening {
		t.Fatalf("expected caller-driven retry to work")
	}
}

func TestController_PlatformErrorEndsSession(t *testing.T) {
	rec := newFakeRecognizer()
	c := NewController(rec, nil)
	defer c.Close()

	c.StartListening()
	rec.events <- Event{Kind: KindResult, Transcript: "partial words"}
	rec.events <- Event{Kind: KindError, Err: errors.New("audio-capture")}

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) && c.State().Listening {
		time.Sleep(2 * time.Millisecond)
	}
	st := c.State()
	if st.Listening || !errors.Is(st.Err, ErrCaptureFailed) {
		t.Fatalf("expected idle with classified error, got %+v", st)
	}
	select {
	case got := <-c.Finalized():
		t.Fatalf("capture failure must not finalize, got %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}
