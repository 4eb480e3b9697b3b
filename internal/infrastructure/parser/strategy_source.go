package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"DailyDigest/internal/config"
	"DailyDigest/internal/domain"
	"DailyDigest/internal/logging"
	"DailyDigest/internal/ports"
	"DailyDigest/internal/scanner"
)

const defaultScanner = "rss"

// StrategySource implements ports.FeedFetcher via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	feeds    map[string]config.FeedConfig
	logger   *slog.Logger
}

var _ ports.FeedFetcher = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with config-defined feeds.
// Feeds not listed in config are scanned with a strategy guessed from the URL.
func NewStrategySource(reg *scanner.Registry, feeds []config.FeedConfig, log *slog.Logger) *StrategySource {
	byURL := make(map[string]config.FeedConfig, len(feeds))
	for _, feed := range feeds {
		byURL[feed.URL] = feed
	}
	if log == nil {
		log = logging.Discard()
	}
	return &StrategySource{
		registry: reg,
		feeds:    byURL,
		logger:   log,
	}
}

// Fetch resolves the strategy for feedURL and runs it.
func (s *StrategySource) Fetch(ctx context.Context, feedURL string) ([]domain.Article, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	feed, known := s.feeds[feedURL]
	name := feed.Scanner
	if name == "" {
		name = guessScanner(feedURL)
	}

	strategy, err := s.registry.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", feedURL, err)
	}

	s.logger.Debug("fetch feed", "url", feedURL, "scanner", name, "configured", known)
	articles, err := strategy.Scan(ctx, scanner.Request{FeedURL: feedURL, Options: feed.Options})
	if err != nil {
		return nil, fmt.Errorf("scan feed %s: %w", feedURL, err)
	}
	s.logger.Debug("feed produced articles", "url", feedURL, "count", len(articles))
	return articles, nil
}

func guessScanner(feedURL string) string {
	parsed, err := url.Parse(feedURL)
	if err != nil {
		return defaultScanner
	}
	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	if strings.HasSuffix(host, "arxiv.org") && strings.HasPrefix(parsed.Path, "/list/") {
		return "arxiv"
	}
	return defaultScanner
}
