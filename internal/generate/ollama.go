package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	maxAttempts = 3
	baseDelay   = 2 * time.Second
)

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumCtx      int     `json:"num_ctx"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Client calls the Ollama HTTP API. Transient failures are retried with
// a fixed doubling backoff before Complete gives up.
type Client struct {
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	sleep      func(time.Duration)
	logger     *zap.Logger
}

func NewClient(baseURL, model string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		timeout:    timeout,
		httpClient: &http.Client{},
		sleep:      time.Sleep,
		logger:     logger,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Ping checks that the backend is reachable. Called once at startup so
// a misconfigured endpoint fails fast instead of per section.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("generate: failed to create ping request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ping returned status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// Complete sends a prompt and returns the generated text. Transient
// failures are retried up to maxAttempts with delays of 2s, 4s, 8s.
// Permanent rejections return immediately.
func (c *Client) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	delay := baseDelay
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := c.callAPI(ctx, prompt, opts)
		if err == nil {
			return text, nil
		}
		if IsRejected(err) {
			return "", err
		}
		lastErr = err

		if attempt < maxAttempts {
			c.logger.Warn("backend call failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
			c.sleep(delay)
			delay *= 2
		}
	}

	return "", fmt.Errorf("generate: all %d attempts failed: %w", maxAttempts, lastErr)
}

func (c *Client) callAPI(ctx context.Context, prompt string, opts Options) (string, error) {
	reqBody := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: opts.Temperature,
			NumCtx:      opts.ContextWindow,
			NumPredict:  opts.MaxOutputTokens,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("generate: failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("generate: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, body)
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("generate: failed to parse response: %w", err)
	}
	if genResp.Error != "" {
		return "", &RejectedError{Status: resp.StatusCode, Reason: genResp.Error}
	}
	if strings.TrimSpace(genResp.Response) == "" {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	return genResp.Response, nil
}

// classifyStatus sorts non-200 responses into transient and permanent
// failures. 429 and 5xx are worth retrying; 4xx means the request is
// wrong and will stay wrong.
func classifyStatus(status int, body []byte) error {
	if status == http.StatusTooManyRequests || status >= 500 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, status)
	}

	reason := strings.TrimSpace(string(body))
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		reason = errResp.Error
	}
	return &RejectedError{Status: status, Reason: reason}
}
