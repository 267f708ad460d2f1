// Command console runs one voice session end to end with console host
// adapters: each stdin line plays the role of a captured utterance, and
// spoken output is printed instead of played.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/zeuzmakessoftware/babelfish/internal/capture"
	"github.com/zeuzmakessoftware/babelfish/internal/channel"
	"github.com/zeuzmakessoftware/babelfish/internal/config"
	"github.com/zeuzmakessoftware/babelfish/internal/glossary"
	"github.com/zeuzmakessoftware/babelfish/internal/history"
	"github.com/zeuzmakessoftware/babelfish/internal/speech"
	"github.com/zeuzmakessoftware/babelfish/internal/translate"
)

// consoleRecognizer treats typed lines as utterances.
type consoleRecognizer struct {
	events chan capture.Event
}

func newConsoleRecognizer() *consoleRecognizer {
	return &consoleRecognizer{events: make(chan capture.Event, 8)}
}

func (r *consoleRecognizer) Start() error { return nil }

func (r *consoleRecognizer) Stop() error {
	r.events <- capture.Event{Kind: capture.KindEnd}
	return nil
}

func (r *consoleRecognizer) Events() <-chan capture.Event { return r.events }

func (r *consoleRecognizer) hear(text string) {
	r.events <- capture.Event{Kind: capture.KindResult, Transcript: text}
}

// printPlayback settles immediately; console output needs no real audio.
type printPlayback struct{ done chan error }

func (p *printPlayback) Done() <-chan error { return p.done }
func (p *printPlayback) Stop()              {}

type printPlayer struct{ log *logrus.Logger }

func (p *printPlayer) Play(audio []byte) (speech.Playback, error) {
	p.log.Infof("playing %d bytes of synthesized audio", len(audio))
	pb := &printPlayback{done: make(chan error, 1)}
	pb.done <- nil
	return pb, nil
}

type printLocalSynth struct{ log *logrus.Logger }

func (s *printLocalSynth) Voices() []speech.Voice {
	return []speech.Voice{{Name: "Console Female"}, {Name: "Console Male"}}
}

func (s *printLocalSynth) Speak(u speech.Utterance) (speech.Playback, error) {
	s.log.Infof("local voice %q: %s", u.Voice.Name, u.Text)
	pb := &printPlayback{done: make(chan error, 1)}
	pb.done <- nil
	return pb, nil
}

func (s *printLocalSynth) Cancel() {}

// echoSpeaker prints the response text before handing it to the voice
// controller, so the console shows what would be spoken.
type echoSpeaker struct {
	next translate.Speaker
}

func (e *echoSpeaker) Speak(ctx context.Context, text, voiceStyle string) {
	fmt.Printf("\n%s\n> ", text)
	e.next.Speak(ctx, text, voiceStyle)
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load()
	sessionID := uuid.NewString()
	log.WithField("session_id", sessionID).Info("starting voice session")

	hist := history.NewLog(cfg.HistoryLimit)
	voice := speech.NewController(
		speech.NewRemoteSynthesizer(cfg.APIBaseURL),
		&printPlayer{log: log},
		&printLocalSynth{log: log},
		speech.NewGestureBus(),
		log,
	)

	var orch *translate.Orchestrator
	mgr := channel.NewManager(cfg.ChannelURL, sessionID, channel.HandlerFunc(func(m channel.Message) {
		orch.HandleChannelMessage(m)
	}), log)
	mgr.ReconnectDelay = cfg.ReconnectDelay

	orch = translate.NewOrchestrator(translate.Options{
		SessionID:  sessionID,
		VoiceStyle: cfg.VoiceStyle,
		Resolvers: []translate.Resolver{
			translate.NewLiveResolver(mgr),
			translate.NewDirectResolver(translate.NewClient(cfg.APIBaseURL)),
			translate.NewLocalResolver(glossary.Default()),
		},
		Speaker: &echoSpeaker{next: voice},
		History: hist,
		Log:     log,
	})

	if err := mgr.Connect(); err != nil {
		log.WithField("error", err).Warn("live channel unavailable, will fall back")
	}
	defer mgr.Close()

	rec := newConsoleRecognizer()
	ctrl := capture.NewController(rec, log)
	defer ctrl.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go orch.Run(ctx, ctrl.Finalized())

	fmt.Println("Type a technical term and press enter (ctrl-d to quit).")
	fmt.Print("> ")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		ctrl.StartListening()
		if line != "" {
			rec.hear(line)
		}
		ctrl.StopListening()
	}

	m := hist.Metrics()
	log.Infof("session over: %d translations, avg confidence %.2f, success rate %.0f%%",
		m.TotalTranslations, m.AverageConfidence, m.SuccessRate*100)
}
