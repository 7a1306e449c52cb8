// Package ollama is an HTTP client for Ollama-compatible chat endpoints:
// single-shot completions, model listing, and streamed model downloads.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shanev77/crosschat/src/aisdk"
)

const (
	defaultTimeout    = 180 * time.Second
	defaultRetryCount = 3
	defaultRetryDelay = 1500 * time.Millisecond
	listTimeout       = 15 * time.Second
)

var _ aisdk.Provider = (*Client)(nil)

// Config holds configuration for the endpoint client.
type Config struct {
	BaseURL    string        // endpoint address, e.g. http://127.0.0.1:11434
	Timeout    time.Duration // per chat call
	RetryCount int           // additional attempts after a timeout; 0 selects the default
	RetryDelay time.Duration // backoff unit; wait is RetryDelay * attempt
	Logger     *slog.Logger
}

// Client is a chat client bound to one endpoint.
type Client struct {
	config     Config
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	tagCache   *tagCache

	// sleep is swapped out by tests to observe backoff waits.
	sleep func(time.Duration)
}

// NewClient creates a client for the given endpoint.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.RetryCount == 0 {
		config.RetryCount = defaultRetryCount
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = defaultRetryDelay
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "ollama_client", "endpoint", config.BaseURL)

	client := &Client{
		config:     config,
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger,
		sleep:      time.Sleep,
	}
	client.tagCache = newTagCache(client, time.Hour)
	return client
}

// Endpoint returns the address the client is bound to.
func (c *Client) Endpoint() string {
	return c.baseURL
}

// Chat requests a single non-streaming completion. Connect/read timeouts
// are retried up to RetryCount times with linear backoff; every other
// failure is fatal on the first occurrence.
func (c *Client) Chat(ctx context.Context, req *aisdk.ChatRequest) (*aisdk.ChatResponse, error) {
	logger := c.logger.With("method", "Chat", "model", req.Model)
	logger.Debug("sending chat request", "messages", len(req.Messages))

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	attempt := 0
	for {
		attempt++

		resp, err := c.chatOnce(ctx, body)
		if err == nil {
			if resp.Truncated() {
				logger.Info("reply hit the generation cap", "num_predict", req.Options.NumPredict)
			}
			return resp, nil
		}

		if !IsTimeout(err) {
			logger.Error("chat request failed", "error", err)
			return nil, err
		}
		if attempt > c.config.RetryCount {
			logger.Error("chat request timed out, retries exhausted", "attempts", attempt)
			return nil, &TimeoutError{
				Operation: "chat",
				Attempts:  attempt,
				Duration:  c.config.Timeout,
				Cause:     err,
			}
		}

		wait := c.config.RetryDelay * time.Duration(attempt)
		logger.Warn("chat request timed out, retrying",
			"attempt", attempt, "retries", c.config.RetryCount, "wait", wait)
		c.sleep(wait)
	}
}

// chatOnce performs one chat call with the configured per-call timeout.
func (c *Client) chatOnce(ctx context.Context, body []byte) (*aisdk.ChatResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleError(resp)
	}

	var result aisdk.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	result.Message.Content = strings.TrimSpace(result.Message.Content)
	if result.Message.Content == "" {
		return nil, ErrEmptyResponse
	}
	return &result, nil
}

// handleError turns a non-2xx response into an APIError.
func (c *Client) handleError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode}
	}

	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}
