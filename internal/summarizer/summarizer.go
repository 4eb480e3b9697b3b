package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"DailyDigest/internal/domain"
	"DailyDigest/internal/logging"
	"DailyDigest/internal/metrics"
	"DailyDigest/internal/ports"
)

const (
	summaryMaxTokens   = 150
	summaryTemperature = 0.3
)

const summaryPrompt = `Write a brief summary of what is new in "%s" based on these recent articles.

ARTICLES:
%s

Write 2-3 sentences that focus on:
- what is NEW or CHANGING in %s
- recent developments, trends, or updates
- what is happening now, not a generic description of the topic

Summary:`

// Summarizer turns a topic and its matched articles into a short "what's new" note.
type Summarizer struct {
	oracle  ports.InferenceOracle
	logger  *slog.Logger
	metrics *metrics.Collector
}

// New builds a summarizer over the oracle.
func New(oracle ports.InferenceOracle, logger *slog.Logger, m *metrics.Collector) *Summarizer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Summarizer{oracle: oracle, logger: logger, metrics: m}
}

// Summarize never fails: oracle errors and empty answers degrade to Fallback.
func (s *Summarizer) Summarize(ctx context.Context, topic string, refs []domain.ArticleRef) string {
	lines := make([]string, 0, len(refs))
	for _, ref := range refs {
		lines = append(lines, fmt.Sprintf("- %s (%s)", ref.Title, ref.Source))
	}
	prompt := fmt.Sprintf(summaryPrompt, topic, strings.Join(lines, "\n"), topic)

	answer, err := s.oracle.Run(ctx, ports.InferenceRequest{
		Prompt:      prompt,
		MaxTokens:   summaryMaxTokens,
		Temperature: summaryTemperature,
	})
	s.metrics.OracleCall("summarize", err)
	if err != nil {
		s.logger.Warn("summary generation failed", "topic", topic, "error", err)
		return Fallback(topic, len(refs))
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return Fallback(topic, len(refs))
	}
	return answer
}

// Fallback is the templated summary used when the oracle cannot help.
func Fallback(topic string, count int) string {
	return fmt.Sprintf("Recent developments in %s based on %d articles.", topic, count)
}
