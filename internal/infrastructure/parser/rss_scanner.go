package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"DailyDigest/internal/domain"
	"DailyDigest/internal/logging"
	"DailyDigest/internal/scanner"
)

// RSSScanner reads RSS and Atom feeds.
type RSSScanner struct {
	parser *gofeed.Parser
	logger *slog.Logger
}

// NewRSSScanner wires an HTTP client into the feed parser.
func NewRSSScanner(client *http.Client, logger *slog.Logger) *RSSScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = "DailyDigestBot/1.0"
	return &RSSScanner{parser: parser, logger: logger}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return "rss"
}

// Scan downloads the feed and converts its items into articles.
// Items without a link are dropped because the link is the article identity.
func (s *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	feed, err := s.parser.ParseURLWithContext(req.FeedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", req.FeedURL, err)
	}

	articles := make([]domain.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		link := resolveLink(req.FeedURL, item.Link)
		if link == "" {
			s.logger.Debug("skip feed item without link", "feed", req.FeedURL, "title", item.Title)
			continue
		}

		title := strings.TrimSpace(item.Title)
		content := firstNonEmpty(item.Content, item.Description, title)
		articles = append(articles, domain.Article{
			URL:     link,
			Title:   title,
			Content: htmlToText(content),
		})
	}
	return articles, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
