package oracle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Client is the boundary to the remote authenticity classifier. Transport
// failures surface as errors; classification failures surface as verdicts
// with StatusError. Calls block for a network round trip, so callers pass a
// context and await completion on their own session path.
type Client interface {
	AnalyzeComprehensive(ctx context.Context, image []byte) (*ScreenshotVerdict, error)
	AnalyzeQuick(ctx context.Context, image []byte) (*FrameVerdict, error)
	AnalyzeAudio(ctx context.Context, audio []byte, mimeType string) (*AudioVerdict, error)
}

// HTTPClient calls the classifier's HTTP API.
type HTTPClient struct {
	apiURL string
	apiKey string
	model  string
	client *http.Client
}

type analyzeRequest struct {
	Model       string  `json:"model"`
	Mode        Mode    `json:"mode"`
	MimeType    string  `json:"mime_type"`
	Data        string  `json:"data"` // base64 payload
	Temperature float64 `json:"temperature"`
}

// NewHTTPClient creates a classifier client.
func NewHTTPClient(apiURL, apiKey, model string, timeout time.Duration) *HTTPClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		apiURL: apiURL,
		apiKey: apiKey,
		model:  model,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (c *HTTPClient) AnalyzeComprehensive(ctx context.Context, image []byte) (*ScreenshotVerdict, error) {
	body, err := c.call(ctx, ModeComprehensive, "image/jpeg", image)
	if err != nil {
		return nil, err
	}
	return decodeScreenshotVerdict(body), nil
}

func (c *HTTPClient) AnalyzeQuick(ctx context.Context, image []byte) (*FrameVerdict, error) {
	body, err := c.call(ctx, ModeQuick, "image/jpeg", image)
	if err != nil {
		return nil, err
	}
	return decodeFrameVerdict(body), nil
}

func (c *HTTPClient) AnalyzeAudio(ctx context.Context, audio []byte, mimeType string) (*AudioVerdict, error) {
	body, err := c.call(ctx, ModeAudio, mimeType, audio)
	if err != nil {
		return nil, err
	}
	return decodeAudioVerdict(body), nil
}

// call submits one payload and returns the raw response body.
func (c *HTTPClient) call(ctx context.Context, mode Mode, mimeType string, payload []byte) ([]byte, error) {
	reqBody, err := json.Marshal(analyzeRequest{
		Model:    c.model,
		Mode:     mode,
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(payload),
		// Low temperature keeps classifier output near-deterministic.
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read classifier response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("Classifier returned status %d (%s mode): %s", resp.StatusCode, mode, body)
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	return body, nil
}
