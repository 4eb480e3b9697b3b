package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"DailyDigest/internal/config"
	"DailyDigest/internal/ports"
)

const defaultResendEndpoint = "https://api.resend.com/emails"

// ResendSender delivers email through the Resend HTTP API.
type ResendSender struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

var _ ports.EmailSender = (*ResendSender)(nil)

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// NewResendSender builds a sender from configuration.
func NewResendSender(cfg config.EmailConfig) *ResendSender {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultResendEndpoint
	}
	return &ResendSender{
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// WithHTTPClient swaps the transport, mostly for tests.
func (s *ResendSender) WithHTTPClient(client *http.Client) *ResendSender {
	s.client = client
	return s
}

// Send posts the message; any non-2xx answer is an error.
func (s *ResendSender) Send(ctx context.Context, msg ports.Email) error {
	if s.apiKey == "" {
		return fmt.Errorf("resend api key is not set")
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}

	body, err := json.Marshal(resendPayload{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("resend error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}
	return nil
}
