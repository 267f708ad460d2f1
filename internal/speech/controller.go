// Package speech turns response text into audible output: remote
// synthesis with local-engine fallback, and recovery from platform
// autoplay restrictions via a deferred user-gesture retry.
package speech

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/zeuzmakessoftware/babelfish/internal/domain"
)

// ErrAutoplayBlocked classifies a playback rejection caused by the
// platform's user-gesture policy. It is recoverable: the same payload is
// retried on the next user gesture instead of falling back locally.
var ErrAutoplayBlocked = errors.New("audio playback requires a user interaction")

// Synthesizer produces an audio payload for text via the remote service.
type Synthesizer interface {
	Synthesize(ctx context.Context, req domain.SynthesisRequest) ([]byte, error)
}

// Playback is one in-flight audible output. Done settles exactly once
// with nil on natural end or the terminal error; Stop is idempotent and
// settles Done.
type Playback interface {
	Done() <-chan error
	Stop()
}

// Player is the platform audio output for synthesized payloads. Play
// returns ErrAutoplayBlocked when policy rejects an unattended start.
type Player interface {
	Play(audio []byte) (Playback, error)
}

// Voice is one locally available synthesis voice.
type Voice struct {
	Name string
}

// Utterance is a local-synthesis request with deterministic prosody.
type Utterance struct {
	Text  string
	Voice Voice
	Pitch float64
	Rate  float64
}

// LocalSynthesizer is the platform's built-in speech synthesis, used
// only when the remote synthesis call itself fails.
type LocalSynthesizer interface {
	Voices() []Voice
	Speak(u Utterance) (Playback, error)
	Cancel()
}

// GestureNotifier runs deferred actions on the next user gesture.
// Registrations are one-shot.
type GestureNotifier interface {
	OnNextGesture(fn func())
}

// Controller is the speaking half of the voice session: at most one
// audible output at a time, superseding any prior one.
type Controller struct {
	synth    Synthesizer
	player   Player
	local    LocalSynthesizer
	gestures GestureNotifier
	log      *logrus.Logger

	mu       sync.Mutex
	speaking bool
	gen      int
	active   Playback
	err      error
}

// NewController constructs a speaking controller. All collaborators are
// required except the logger.
func NewController(synth Synthesizer, player Player, local LocalSynthesizer, gestures GestureNotifier, log *logrus.Logger) *Controller {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Controller{synth: synth, player: player, local: local, gestures: gestures, log: log}
}

// Speaking reports whether an utterance is active or pending a gesture retry.
func (c *Controller) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// Err returns the last speaking error, if any. ErrAutoplayBlocked here
// means playback is parked awaiting the next user gesture.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Speak renders text audibly. Empty or whitespace-only text is a no-op.
// A prior utterance is fully superseded before the new one starts.
func (c *Controller) Speak(ctx context.Context, text, voiceStyle string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	prev := c.active
	c.active = nil
	c.speaking = true
	c.err = nil
	c.mu.Unlock()

	c.supersede(prev)

	go func() {
		audio, err := c.synth.Synthesize(ctx, domain.SynthesisRequest{Text: text, VoiceStyle: voiceStyle, Speed: 1.0})
		if c.stale(gen) {
			return
		}
		if err != nil {
			c.log.WithField("error", err).Warn("remote synthesis failed, using local voice")
			c.speakLocally(gen, text, voiceStyle)
			return
		}
		c.playRemote(gen, audio, true)
	}()
}

// StopSpeaking cancels any local utterance in progress and stops active
// playback. It also abandons a pending gesture retry. Idempotent.
func (c *Controller) StopSpeaking() {
	c.mu.Lock()
	c.gen++
	prev := c.active
	c.active = nil
	c.speaking = false
	c.mu.Unlock()
	c.supersede(prev)
}

// supersede tears down the previous owner's output before a new one may start.
func (c *Controller) supersede(prev Playback) {
	if c.local != nil {
		c.local.Cancel()
	}
	if prev != nil {
		prev.Stop()
	}
}

func (c *Controller) stale(gen int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen != c.gen
}

// playRemote starts playback of a synthesized payload. An autoplay
// rejection parks the same payload for a single retry on the next user
// gesture; it never falls back to local synthesis.
func (c *Controller) playRemote(gen int, audio []byte, allowGestureRetry bool) {
	if c.stale(gen) {
		return
	}
	pb, err := c.player.Play(audio)
	if err != nil {
		if allowGestureRetry && errors.Is(err, ErrAutoplayBlocked) && c.gestures != nil {
			c.mu.Lock()
			if gen == c.gen {
				c.err = ErrAutoplayBlocked
			}
			c.mu.Unlock()
			c.log.Info("playback blocked by autoplay policy, waiting for user gesture")
			c.gestures.OnNextGesture(func() {
				if c.stale(gen) {
					return
				}
				// gesture dispatch must return immediately; the retried
				// playback settles on its own goroutine
				go c.playRemote(gen, audio, false)
			})
			return
		}
		c.settle(gen, err)
		return
	}
	c.track(gen, pb)
}

// speakLocally picks the closest local voice for the style hint and speaks.
func (c *Controller) speakLocally(gen int, text, voiceStyle string) {
	if c.local == nil {
		c.settle(gen, errors.New("no local synthesizer available"))
		return
	}
	voice := PickVoice(c.local.Voices(), voiceStyle)
	pitch, rate := VoiceProsody(voiceStyle)
	pb, err := c.local.Speak(Utterance{Text: text, Voice: voice, Pitch: pitch, Rate: rate})
	if err != nil {
		c.settle(gen, err)
		return
	}
	c.track(gen, pb)
}

// track adopts a playback as the active output and waits for it to settle.
func (c *Controller) track(gen int, pb Playback) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		pb.Stop()
		return
	}
	c.err = nil
	c.active = pb
	c.mu.Unlock()

	err := <-pb.Done()
	c.settle(gen, err)
}

func (c *Controller) settle(gen int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.speaking = false
	c.active = nil
	c.err = err
	if err != nil {
		c.log.WithField("error", err).Warn("playback ended with error")
	}
}

// PickVoice chooses a local voice matching the style hint by name
// heuristic (contains "female"/"male" or a known proper name), or the
// first available voice when nothing matches.
func PickVoice(voices []Voice, voiceStyle string) Voice {
	if len(voices) == 0 {
		return Voice{}
	}
	keywords := voiceKeywords(voiceStyle)
	for _, kw := range keywords {
		for _, v := range voices {
			name := strings.ToLower(v.Name)
			// "female" contains "male", so a male hint must not match it
			if kw == "male" && strings.Contains(name, "female") {
				continue
			}
			if strings.Contains(name, kw) {
				return v
			}
		}
	}
	return voices[0]
}

// VoiceProsody derives deterministic pitch and rate from the style hint.
func VoiceProsody(voiceStyle string) (pitch, rate float64) {
	pitch, rate = 1.0, 1.0
	style := strings.ToLower(voiceStyle)
	if strings.Contains(style, "female") {
		pitch = 1.1
	} else if strings.Contains(style, "male") {
		pitch = 0.9
	}
	if strings.Contains(style, "conversational") {
		rate = 1.05
	}
	return pitch, rate
}

func voiceKeywords(voiceStyle string) []string {
	style := strings.ToLower(voiceStyle)
	// "female" must be checked before "male" since it contains it
	if strings.Contains(style, "female") {
		return []string{"female", "aurora", "bella", "samantha", "victoria"}
	}
	if strings.Contains(style, "male") {
		return []string{"male", "atlas", "caleb", "daniel", "alex"}
	}
	return nil
}
