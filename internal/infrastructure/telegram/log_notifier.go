package telegram

import (
	"context"
	"log/slog"

	"DailyDigest/internal/ports"
)

// LogNotifier writes digests to the logger when no chat is configured.
type LogNotifier struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*LogNotifier)(nil)

// NewLogNotifier builds a notifier over logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// PublishDigest logs the digest at info level.
func (l *LogNotifier) PublishDigest(_ context.Context, digest string) error {
	l.logger.Info("digest", "text", digest)
	return nil
}
