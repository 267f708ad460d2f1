package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zeuzmakessoftware/babelfish/internal/domain"
)

func TestRemoteSynthesizer_ReturnsPayload(t *testing.T) {
	payload := []byte{0xff, 0xfb, 0x90, 0x00} // mpeg frame header bytes
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/voice/synthesize" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req domain.SynthesisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	s := NewRemoteSynthesizer(srv.URL)
	audio, err := s.Synthesize(context.Background(), domain.SynthesisRequest{Text: "hello", VoiceStyle: "professional_female", Speed: 1.0})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if !bytes.Equal(audio, payload) {
		t.Fatalf("unexpected payload %v", audio)
	}
}

func TestRemoteSynthesizer_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewRemoteSynthesizer(srv.URL)
	if _, err := s.Synthesize(context.Background(), domain.SynthesisRequest{Text: "hello"}); err == nil {
		t.Fatalf("expected error for non-2xx status")
	}
	if _, err := s.Synthesize(context.Background(), domain.SynthesisRequest{}); err == nil {
		t.Fatalf("expected error for empty text")
	}
}

func TestRemoteSynthesizer_EmptyBodyIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewRemoteSynthesizer(srv.URL)
	if _, err := s.Synthesize(context.Background(), domain.SynthesisRequest{Text: "hello"}); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}
