package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zeuzmakessoftware/babelfish/internal/domain"
)

// RemoteSynthesizer calls the backend voice endpoint and returns the
// binary audio payload (audio/mpeg). Any non-2xx response is a
// synthesis failure.
type RemoteSynthesizer struct {
	HTTPClient *http.Client
	BaseURL    string
}

// NewRemoteSynthesizer builds a client against the backend base URL.
func NewRemoteSynthesizer(baseURL string) *RemoteSynthesizer {
	return &RemoteSynthesizer{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    baseURL,
	}
}

// Synthesize implements Synthesizer.
func (r *RemoteSynthesizer) Synthesize(ctx context.Context, sr domain.SynthesisRequest) ([]byte, error) {
	if sr.Text == "" {
		return nil, fmt.Errorf("synthesize: text is required")
	}
	buf, _ := json.Marshal(sr)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/api/voice/synthesize", bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("synthesis status=%d body=%s", resp.StatusCode, string(b))
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("synthesis read: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("synthesis returned empty payload")
	}
	return audio, nil
}
