package notify

import (
	"context"
	"fmt"
	"log/slog"

	"DailyDigest/internal/domain"
	"DailyDigest/internal/logging"
	"DailyDigest/internal/metrics"
	"DailyDigest/internal/ports"
)

// Dispatcher renders briefings to email and attempts delivery.
type Dispatcher struct {
	sender  ports.EmailSender
	from    string
	baseURL string
	logger  *slog.Logger
	metrics *metrics.Collector
}

// DispatcherDeps wires the dispatcher.
type DispatcherDeps struct {
	Sender  ports.EmailSender
	From    string
	BaseURL string
	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// NewDispatcher builds a dispatcher; a nil Sender makes every delivery fail softly.
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	return &Dispatcher{
		sender:  deps.Sender,
		from:    deps.From,
		baseURL: deps.BaseURL,
		logger:  deps.Logger,
		metrics: deps.Metrics,
	}
}

// Deliver emails the briefing to the user and reports success. It never
// returns an error or panics; failures are logged.
func (d *Dispatcher) Deliver(ctx context.Context, user domain.User, briefing domain.Briefing, key string) (ok bool) {
	if d == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("briefing email panicked", "to", user.Email, "panic", fmt.Sprint(r))
			ok = false
		}
		d.metrics.EmailSent(ok)
	}()

	if err := d.deliver(ctx, user, briefing, key); err != nil {
		d.logger.Warn("briefing email not sent", "to", user.Email, "error", err)
		return false
	}
	d.logger.Info("briefing email sent", "to", user.Email, "key", key)
	return true
}

func (d *Dispatcher) deliver(ctx context.Context, user domain.User, briefing domain.Briefing, key string) error {
	if d.sender == nil {
		return fmt.Errorf("email sender is not configured")
	}
	if user.Email == "" {
		return fmt.Errorf("recipient is empty")
	}

	html, err := RenderHTML(briefing, key, d.baseURL)
	if err != nil {
		return err
	}

	return d.sender.Send(ctx, ports.Email{
		From:    d.from,
		To:      []string{user.Email},
		Subject: Subject(briefing),
		HTML:    html,
	})
}
