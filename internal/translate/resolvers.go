package translate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zeuzmakessoftware/babelfish/internal/channel"
	"github.com/zeuzmakessoftware/babelfish/internal/domain"
	"github.com/zeuzmakessoftware/babelfish/internal/glossary"
)

// LocalConfidence is the fixed nominal confidence assigned by the
// dictionary tier; it performs no statistical scoring. Kept under the
// 0.8 success threshold so local answers never count as successes.
const LocalConfidence = 0.75

// GenericConfidence marks the synthesized unrecognized-term response.
const GenericConfidence = 0.2

// DefaultReplyTimeout bounds the wait for a live-channel dispatch so
// the chain can fall back at all.
const DefaultReplyTimeout = 15 * time.Second

// Resolver is one resolution tier. Tiers are tried in order; the first
// to return without error wins.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, req domain.TranslationRequest) (domain.TranslationResult, error)
}

// LiveChannel is the connectivity surface the live tier needs.
type LiveChannel interface {
	Connected() bool
	Send(v any) error
}

// LiveResolver sends the request over the persistent channel and waits
// for the asynchronously dispatched completion or error.
type LiveResolver struct {
	ch LiveChannel
	// ReplyTimeout may be shortened in tests.
	ReplyTimeout time.Duration

	mu      sync.Mutex
	waiting chan liveOutcome
}

type liveOutcome struct {
	result domain.TranslationResult
	err    error
}

// NewLiveResolver builds the live tier over the given channel.
func NewLiveResolver(ch LiveChannel) *LiveResolver {
	return &LiveResolver{ch: ch, ReplyTimeout: DefaultReplyTimeout}
}

// Name implements Resolver.
func (r *LiveResolver) Name() string { return "live_channel" }

// Resolve implements Resolver. It fails fast while disconnected and
// never queues behind the channel.
func (r *LiveResolver) Resolve(ctx context.Context, req domain.TranslationRequest) (domain.TranslationResult, error) {
	var zero domain.TranslationResult
	if !r.ch.Connected() {
		return zero, channel.ErrNotConnected
	}

	wait := make(chan liveOutcome, 1)
	r.mu.Lock()
	r.waiting = wait
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.waiting = nil
		r.mu.Unlock()
	}()

	if err := r.ch.Send(channel.NewTranslateEnvelope(req)); err != nil {
		return zero, err
	}

	select {
	case o := <-wait:
		if o.err != nil {
			return zero, o.err
		}
		o.result.Sources = appendSource(o.result.Sources, "live_channel")
		return o.result, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-time.After(r.ReplyTimeout):
		return zero, errors.New("live channel reply timed out")
	}
}

// HandleChannelMessage feeds dispatched completions and errors to the
// waiting resolution, if any. Other message types are none of its business.
func (r *LiveResolver) HandleChannelMessage(msg channel.Message) {
	r.mu.Lock()
	wait := r.waiting
	r.mu.Unlock()
	if wait == nil {
		return
	}
	switch m := msg.(type) {
	case channel.TranslationComplete:
		select {
		case wait <- liveOutcome{result: m.Result}:
		default:
		}
	case channel.ErrorMessage:
		select {
		case wait <- liveOutcome{err: fmt.Errorf("channel error: %s", m.Message)}:
		default:
		}
	}
}

// DirectResolver is the one-shot request fallback tier.
type DirectResolver struct {
	client *Client
}

// NewDirectResolver builds the direct tier over a REST client.
func NewDirectResolver(client *Client) *DirectResolver {
	return &DirectResolver{client: client}
}

// Name implements Resolver.
func (r *DirectResolver) Name() string { return "direct_api" }

// Resolve implements Resolver.
func (r *DirectResolver) Resolve(ctx context.Context, req domain.TranslationRequest) (domain.TranslationResult, error) {
	res, err := r.client.Translate(ctx, req)
	if err != nil {
		return res, err
	}
	res.Sources = appendSource(res.Sources, "direct_api")
	return res, nil
}

// LocalResolver answers from the static dictionary. It never fails: a
// miss yields a generic unrecognized-term response, so a chain ending
// in this tier always produces exactly one result.
type LocalResolver struct {
	dict *glossary.Glossary
}

// NewLocalResolver builds the dictionary tier.
func NewLocalResolver(dict *glossary.Glossary) *LocalResolver {
	if dict == nil {
		dict = glossary.Default()
	}
	return &LocalResolver{dict: dict}
}

// Name implements Resolver.
func (r *LocalResolver) Name() string { return "local_dictionary" }

// Resolve implements Resolver.
func (r *LocalResolver) Resolve(ctx context.Context, req domain.TranslationRequest) (domain.TranslationResult, error) {
	start := time.Now()
	if e, ok := r.dict.Lookup(req.InputText); ok {
		return domain.TranslationResult{
			SessionID:        req.SessionID,
			Term:             e.Term,
			Explanation:      e.Explanation,
			Category:         e.Category,
			Confidence:       LocalConfidence,
			BusinessImpact:   e.BusinessImpact,
			RelatedTerms:     e.RelatedTerms,
			Sources:          []string{"local_dictionary"},
			ProcessingTimeMs: float64(time.Since(start).Milliseconds()),
		}, nil
	}
	return domain.TranslationResult{
		SessionID:        req.SessionID,
		Term:             req.InputText,
		Explanation:      fmt.Sprintf("I don't have a definition for %q yet. Try rephrasing, or ask about a related technical term.", req.InputText),
		Category:         "General",
		Confidence:       GenericConfidence,
		BusinessImpact:   "Unknown",
		RelatedTerms:     []string{},
		Sources:          []string{"local_dictionary"},
		ProcessingTimeMs: float64(time.Since(start).Milliseconds()),
	}, nil
}

func appendSource(sources []string, tag string) []string {
	for _, s := range sources {
		if s == tag {
			return sources
		}
	}
	return append(sources, tag)
}
