// Package capture wraps the platform speech-capture capability into a
// listening state machine that emits partial and finalized transcripts.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrUnsupported marks a platform without a speech-capture capability.
// It is permanent: all capture operations become no-ops for the session.
var ErrUnsupported = errors.New("speech capture not supported on this platform")

// ErrCaptureFailed marks a capture attempt that failed at the platform
// level (hardware, permission). The controller returns to idle and does
// not retry on its own.
var ErrCaptureFailed = errors.New("speech capture failed")

// Kind tags a recognizer event.
type Kind int

const (
	// KindResult carries an interim transcript. Each result replaces the
	// controller transcript in full.
	KindResult Kind = iota
	// KindEnd signals the capture session ended (silence, timeout, or stop).
	KindEnd
	// KindError signals a platform-level capture failure; the session ends.
	KindError
)

// Event is one notification from the platform recognizer.
type Event struct {
	Kind       Kind
	Transcript string
	Err        error
}

// Recognizer is the platform speech-capture capability. Start begins a
// capture session; Stop ends it, after which the recognizer must still
// deliver a KindEnd event. Events is a session-lifetime channel.
type Recognizer interface {
	Start() error
	Stop() error
	Events() <-chan Event
}

// State is a snapshot of the listening state machine.
type State struct {
	Listening  bool
	Transcript string
	Supported  bool
	Err        error
}

// Controller is the listening state machine: idle -> listening -> idle.
// Finalized transcripts are edge-triggered: one is emitted exactly when
// listening transitions to false with a non-empty transcript.
type Controller struct {
	rec Recognizer
	log *logrus.Logger

	mu         sync.Mutex
	listening  bool
	transcript string
	supported  bool
	err        error

	partials chan string
	finals   chan string
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewController performs capability detection once: a nil recognizer
// means the platform is unsupported and the controller is permanently
// inert. The returned controller owns a goroutine consuming recognizer
// events until Close.
func NewController(rec Recognizer, log *logrus.Logger) *Controller {
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := &Controller{
		rec:      rec,
		log:      log,
		partials: make(chan string, 16),
		finals:   make(chan string, 4),
		stopCh:   make(chan struct{}),
	}
	if rec == nil {
		c.supported = false
		c.err = ErrUnsupported
		log.Warn("speech capture unavailable: no recognizer")
		return c
	}
	c.supported = true
	go c.consume()
	return c
}

// Partials streams interim transcripts while listening.
func (c *Controller) Partials() <-chan string { return c.partials }

// Finalized emits one transcript per completed, non-empty capture session.
func (c *Controller) Finalized() <-chan string { return c.finals }

// State returns a snapshot of the session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Listening: c.listening, Transcript: c.transcript, Supported: c.supported, Err: c.err}
}

// StartListening begins platform capture. It is a silent no-op when
// already listening or when capture is unsupported.
func (c *Controller) StartListening() {
	c.mu.Lock()
	if !c.supported || c.listening {
		c.mu.Unlock()
		return
	}
	c.listening = true
	c.transcript = ""
	c.err = nil
	c.mu.Unlock()

	if err := c.rec.Start(); err != nil {
		c.mu.Lock()
		c.listening = false
		c.err = fmt.Errorf("%w: %v", ErrCaptureFailed, err)
		c.mu.Unlock()
		c.log.WithField("error", err).Warn("capture start failed")
	}
}

// StopListening ends capture. No-op when not listening; finalization is
// driven by the recognizer's end event, not by this call.
func (c *Controller) StopListening() {
	c.mu.Lock()
	listening := c.listening
	c.mu.Unlock()
	if !c.supported || !listening {
		return
	}
	if err := c.rec.Stop(); err != nil {
		c.log.WithField("error", err).Warn("capture stop failed")
	}
}

// Close stops the event loop. Pending transcripts are discarded.
func (c *Controller) Close() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

func (c *Controller) consume() {
	for {
		select {
		case <-c.stopCh:
			return
		case ev, ok := <-c.rec.Events():
			if !ok {
				return
			}
			c.handle(ev)
		}
	}
}

func (c *Controller) handle(ev Event) {
	switch ev.Kind {
	case KindResult:
		c.mu.Lock()
		if !c.listening {
			c.mu.Unlock()
			return
		}
		c.transcript = ev.Transcript
		c.mu.Unlock()
		select {
		case c.partials <- ev.Transcript:
		default:
		}
	case KindEnd:
		c.mu.Lock()
		if !c.listening {
			c.mu.Unlock()
			return
		}
		c.listening = false
		final := c.transcript
		c.mu.Unlock()
		if final == "" {
			return
		}
		select {
		case c.finals <- final:
		case <-c.stopCh:
		}
	case KindError:
		c.mu.Lock()
		c.listening = false
		c.err = fmt.Errorf("%w: %v", ErrCaptureFailed, ev.Err)
		c.mu.Unlock()
		c.log.WithField("error", ev.Err).Warn("capture error")
	}
}
