package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTimeout = 5 * time.Minute
	defaultModel   = "base"

	// maxErrorBody bounds how much of an error response gets copied into the
	// returned error.
	maxErrorBody = 2048
)

// ClientConfig configures the HTTP transcription client.
type ClientConfig struct {
	// BaseURL of the transcription server, e.g. "http://localhost:9000".
	BaseURL string

	// Model selects the engine model, e.g. "base" or "large-v3".
	Model string

	// Timeout bounds a single transcription call end to end.
	Timeout time.Duration

	// HTTPClient overrides the transport. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Client calls a whisper-style transcription server over HTTP. The server
// shares storage with this service, so requests carry the storage ref rather
// than the media bytes.
type Client struct {
	baseURL string
	model   string
	timeout time.Duration
	http    *http.Client
	logger  *zap.Logger
}

var _ Transcriber = (*Client)(nil)

// NewClient creates a transcription client.
func NewClient(cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("transcribe: base URL is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		http:    cfg.HTTPClient,
		logger:  logger,
	}, nil
}

type transcribeRequest struct {
	Path  string `json:"path"`
	Model string `json:"model"`
}

// Transcribe sends the storage ref to the server and decodes the result.
// The call is bounded by the configured timeout on top of any deadline
// already present on ctx.
func (c *Client) Transcribe(ctx context.Context, storageRef string) (*Result, error) {
	if storageRef == "" {
		return nil, fmt.Errorf("transcribe: storage ref is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(transcribeRequest{Path: storageRef, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("transcribe: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transcriptions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("transcribe: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcribe: calling engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("transcribe: engine returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("transcribe: decoding response: %w", err)
	}
	if result.Text == "" {
		return nil, ErrEmptyTranscript
	}

	c.logger.Debug("transcription engine call complete",
		zap.String("storage_ref", storageRef),
		zap.String("language", result.Language),
		zap.Int("segments", len(result.Segments)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &result, nil
}
