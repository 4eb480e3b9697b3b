package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"DailyDigest/internal/domain"
)

// IngestResult describes a single ingestion.
type IngestResult struct {
	Article domain.Article
	Created bool
	// RoutedTo is the first user whose interests matched a new article.
	RoutedTo string
}

// IngestReport summarizes a feed ingestion.
type IngestReport struct {
	Fetched  int `json:"fetched"`
	Ingested int `json:"ingested"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// IngestArticle stores the article unless its URL is already known, then
// routes it to the first registered user whose interests match.
// Re-ingesting a known URL is a no-op that keeps the original record.
func (p *Pipeline) IngestArticle(ctx context.Context, title, content, url string) (IngestResult, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return IngestResult{}, fmt.Errorf("article url is required: %w", domain.ErrInvalidInput)
	}

	stored, created, err := p.articles.Put(ctx, domain.Article{
		URL:     url,
		Title:   strings.TrimSpace(title),
		Content: strings.TrimSpace(content),
	})
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingest article: %w", err)
	}
	p.metrics.ArticleIngested(created)

	result := IngestResult{Article: stored, Created: created}
	if !created {
		p.logger.Debug("article already ingested", "url", url)
		return result, nil
	}

	p.logger.Info("article ingested", "url", url, "title", stored.Title)
	routed, err := p.route(ctx, stored)
	if err != nil {
		p.logger.Warn("routing scan aborted", "url", url, "error", err)
	}
	result.RoutedTo = routed
	return result, nil
}

// route scans users in key order and notifies only the first match.
// Later matching users are not notified here; they still see the article in
// their next briefing.
func (p *Pipeline) route(ctx context.Context, article domain.Article) (string, error) {
	users, err := p.users.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list users: %w", err)
	}

	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		match, err := p.classifier.ClassifyOne(ctx, user.Interests, article)
		if err != nil {
			p.logger.Warn("routing classification failed", "email", user.Email, "url", article.URL, "error", err)
			continue
		}
		if !match {
			continue
		}

		p.logger.Info("article routed", "email", user.Email, "url", article.URL)
		p.publish(ctx, fmt.Sprintf("New article for %s: %s\n%s", user.Email, article.Title, article.URL))
		return user.Email, nil
	}
	return "", nil
}

// IngestFeed fetches a feed and ingests every item; item failures are counted, not fatal.
func (p *Pipeline) IngestFeed(ctx context.Context, feedURL string) (IngestReport, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return IngestReport{}, fmt.Errorf("feed url is required: %w", domain.ErrInvalidInput)
	}
	if p.feeds == nil {
		return IngestReport{}, fmt.Errorf("feed fetcher is not configured")
	}

	articles, err := p.feeds.Fetch(ctx, feedURL)
	if err != nil {
		return IngestReport{}, fmt.Errorf("fetch feed %s: %w", feedURL, err)
	}

	report := IngestReport{Fetched: len(articles)}
	for _, article := range articles {
		res, err := p.IngestArticle(ctx, article.Title, article.Content, article.URL)
		switch {
		case err != nil:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return report, err
			}
			report.Failed++
			p.logger.Warn("feed item not ingested", "feed", feedURL, "url", article.URL, "error", err)
		case res.Created:
			report.Ingested++
		default:
			report.Skipped++
		}
	}

	p.logger.Info("feed ingested", "feed", feedURL, "fetched", report.Fetched, "ingested", report.Ingested, "skipped", report.Skipped, "failed", report.Failed)
	return report, nil
}

func (p *Pipeline) publish(ctx context.Context, digest string) bool {
	if p.notifier == nil {
		p.logger.Debug("no notifier configured", "digest", digest)
		return false
	}
	if err := p.notifier.PublishDigest(ctx, digest); err != nil {
		p.logger.Warn("notification not published", "error", err)
		return false
	}
	return true
}
