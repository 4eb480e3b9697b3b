package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DailyDigest/internal/config"
	"DailyDigest/internal/ports"
)

func TestResendSenderSend(t *testing.T) {
	t.Parallel()

	var (
		got         resendPayload
		auth        string
		idempotency string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		idempotency = r.Header.Get("Idempotency-Key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"49a3999c-0ce1-4ea6-ab68-afcd6dc2e794"}`))
	}))
	defer srv.Close()

	sender := NewResendSender(config.EmailConfig{Endpoint: srv.URL, APIKey: "re_test"}).WithHTTPClient(srv.Client())
	err := sender.Send(context.Background(), ports.Email{
		From:    "Digest <d@example.com>",
		To:      []string{"a@example.com"},
		Subject: "Your Daily Digest - October 18, 2026",
		HTML:    "<p>hi</p>",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer re_test", auth)
	assert.Len(t, idempotency, 36)
	assert.Equal(t, []string{"a@example.com"}, got.To)
	assert.Equal(t, "<p>hi</p>", got.HTML)
	assert.Equal(t, "Your Daily Digest - October 18, 2026", got.Subject)
}

func TestResendSenderErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"domain not verified"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	msg := ports.Email{To: []string{"a@example.com"}, Subject: "s", HTML: "h"}

	err := NewResendSender(config.EmailConfig{Endpoint: srv.URL, APIKey: "k"}).WithHTTPClient(srv.Client()).Send(context.Background(), msg)
	require.ErrorContains(t, err, "domain not verified")

	err = NewResendSender(config.EmailConfig{}).Send(context.Background(), msg)
	require.ErrorContains(t, err, "api key")

	err = NewResendSender(config.EmailConfig{APIKey: "k"}).Send(context.Background(), ports.Email{})
	require.ErrorContains(t, err, "no recipients")
}
