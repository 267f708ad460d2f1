package translate

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

// Client issues one-shot translation requests against the backend REST
// endpoint. It is the direct-request fallback tier's transport.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
}

// NewClient builds a direct-request client for the backend base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 20 * time.Second},
		BaseURL:    baseURL,
	}
}

// Translate posts the request and decodes the translation response.
func (c *Client) Translate(ctx context.Context, req domain.TranslationRequest) (domain.TranslationResult, error) {
	var out domain.TranslationResult
	if req.InputText == "" {
		return out, fmt.Errorf("translate: input text is required")
	}
	buf, _ := json.Marshal(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/translate", bytes.NewReader(buf))
	if err != nil {
		return out, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return out, fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return out, fmt.Errorf("translate status=%d body=%s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("translate decode: %w", err)
	}
	if out.Explanation == "" {
		return out, fmt.Errorf("translate: empty explanation in response")
	}
	return out, nil
}
