// Package translate coordinates the voice session: a finalized
// transcript is resolved through an ordered fallback chain, spoken back,
// and recorded in the conversation history.
package translate

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/zeuzmakessoftware/babelfish/internal/channel"
	"github.com/zeuzmakessoftware/babelfish/internal/domain"
	"github.com/zeuzmakessoftware/babelfish/internal/history"
)

// ErrEmptyTranscript marks a transcript with no content to resolve.
var ErrEmptyTranscript = errors.New("empty transcript")

// ErrResolutionInFlight rejects reentrant resolution; one request may be
// in flight per session.
var ErrResolutionInFlight = errors.New("a resolution is already in flight")

// ErrExhausted means every tier failed. Unreachable when the chain ends
// with the dictionary tier, which never fails.
var ErrExhausted = errors.New("all resolution tiers failed")

// Speaker voices a resolved explanation.
type Speaker interface {
	Speak(ctx context.Context, text, voiceStyle string)
}

// Options configures an Orchestrator.
type Options struct {
	SessionID       string
	VoiceStyle      string
	BusinessContext string
	Resolvers       []Resolver
	Speaker         Speaker
	History         *history.Log
	Log             *logrus.Logger
}

// Orchestrator is the top-level coordinator of the fallback chain.
type Orchestrator struct {
	opts Options
	log  *logrus.Logger

	mu          sync.Mutex
	processing  bool
	backendBusy bool
	statusNote  string
}

// NewOrchestrator wires the coordinator. Resolvers are tried strictly
// in the order given.
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.History == nil {
		opts.History = history.NewLog(history.DefaultLimit)
	}
	return &Orchestrator{opts: opts, log: opts.Log}
}

// Processing reports whether a resolution is in flight, locally or as
// signaled by the backend over the channel.
func (o *Orchestrator) Processing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.processing || o.backendBusy
}

// StatusNote returns the last backend progress message, for the UI layer.
func (o *Orchestrator) StatusNote() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.statusNote
}

// History exposes the session ledger.
func (o *Orchestrator) History() *history.Log { return o.opts.History }

// Run consumes finalized transcripts until the channel closes or the
// context ends. Each transcript is resolved exactly once; consumption is
// serial, so resolutions never overlap.
func (o *Orchestrator) Run(ctx context.Context, finals <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case text, ok := <-finals:
			if !ok {
				return
			}
			if _, err := o.Resolve(ctx, text); err != nil && !errors.Is(err, ErrEmptyTranscript) {
				o.log.WithField("error", err).Warn("resolution failed")
			}
		}
	}
}

// Resolve runs the fallback chain for one finalized transcript: first
// tier to answer wins, a tier failure never aborts the chain. On success
// the explanation is spoken and the exchange recorded.
func (o *Orchestrator) Resolve(ctx context.Context, transcript string) (domain.TranslationResult, error) {
	var zero domain.TranslationResult
	text := strings.TrimSpace(transcript)
	if text == "" {
		return zero, ErrEmptyTranscript
	}

	o.mu.Lock()
	if o.processing {
		o.mu.Unlock()
		return zero, ErrResolutionInFlight
	}
	o.processing = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.processing = false
		o.backendBusy = false
		o.statusNote = ""
		o.mu.Unlock()
	}()

	req := domain.TranslationRequest{
		InputText:       text,
		SessionID:       o.opts.SessionID,
		BusinessContext: o.opts.BusinessContext,
	}

	for _, r := range o.opts.Resolvers {
		res, err := r.Resolve(ctx, req)
		if err != nil {
			o.log.WithFields(logrus.Fields{"tier": r.Name(), "error": err}).Info("tier failed, trying next")
			continue
		}
		if res.Term == "" {
			res.Term = text
		}
		res.SessionID = o.opts.SessionID
		o.log.WithFields(logrus.Fields{"tier": r.Name(), "term": res.Term, "confidence": res.Confidence}).Info("resolved")
		o.finish(ctx, text, res)
		return res, nil
	}
	return zero, ErrExhausted
}

func (o *Orchestrator) finish(ctx context.Context, input string, res domain.TranslationResult) {
	if o.opts.Speaker != nil {
		o.opts.Speaker.Speak(ctx, res.Explanation, o.opts.VoiceStyle)
	}
	o.opts.History.Record(history.Entry{
		UserInput:        input,
		AIResponse:       res.Explanation,
		Confidence:       res.Confidence,
		Category:         res.Category,
		ProcessingTimeMs: res.ProcessingTimeMs,
	})
}

// HandleChannelMessage implements channel.Handler: progress messages
// update the processing note, completions and errors are forwarded to
// resolver tiers that listen on the channel, unknown types are dropped.
func (o *Orchestrator) HandleChannelMessage(msg channel.Message) {
	switch m := msg.(type) {
	case channel.Status:
		o.mu.Lock()
		if m.Status == "processing" {
			o.backendBusy = true
		}
		o.statusNote = m.Message
		o.mu.Unlock()
		return
	case channel.Unknown:
		return
	default:
		o.mu.Lock()
		o.backendBusy = false
		o.mu.Unlock()
	}
	for _, r := range o.opts.Resolvers {
		if h, ok := r.(channel.Handler); ok {
			h.HandleChannelMessage(msg)
		}
	}
}
