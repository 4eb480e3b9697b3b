package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"DailyDigest/internal/config"
	"DailyDigest/internal/ports"
)

// Client talks to a Workers-AI style inference endpoint:
// POST {endpoint}/{model} {prompt, max_tokens, temperature} -> {result: {response}}.
type Client struct {
	endpoint string
	model    string
	apiKey   string
	http     *http.Client
}

var _ ports.InferenceOracle = (*Client)(nil)

type runRequest struct {
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type runResponse struct {
	Result struct {
		Response string `json:"response"`
	} `json:"result"`
	Success *bool `json:"success"`
	Errors  []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.MLConfig) *Client {
	return &Client{
		endpoint: strings.TrimSuffix(cfg.InferenceURL, "/"),
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// WithHTTPClient swaps the transport, mostly for tests.
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.http = client
	return c
}

// Run submits the prompt to the configured model.
func (c *Client) Run(ctx context.Context, in ports.InferenceRequest) (string, error) {
	if c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("inference client misconfigured")
	}

	payload := runRequest{Prompt: in.Prompt, MaxTokens: in.MaxTokens}
	if in.Temperature > 0 {
		temperature := in.Temperature
		payload.Temperature = &temperature
	}

	var resp runResponse
	if err := c.post(ctx, "/"+c.model, payload, &resp); err != nil {
		return "", err
	}
	if resp.Success != nil && !*resp.Success {
		messages := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			messages = append(messages, e.Message)
		}
		return "", fmt.Errorf("inference failed: %s", strings.Join(messages, "; "))
	}

	return resp.Result.Response, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
