package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"DailyDigest/internal/domain"
	"DailyDigest/internal/logging"
	"DailyDigest/internal/scanner"
)

const (
	arxivBaseURL = "https://arxiv.org"
)

// ArxivScanner reads an arXiv listing page (e.g. /list/cs.AI/new) into articles.
type ArxivScanner struct {
	client   *http.Client
	pageSize int
	logger   *slog.Logger
}

// NewArxivScanner wires an HTTP client; pageSize defaults to 200.
func NewArxivScanner(client *http.Client, logger *slog.Logger) *ArxivScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &ArxivScanner{client: client, pageSize: 200, logger: logger}
}

// Name identifies the strategy inside the registry.
func (a *ArxivScanner) Name() string {
	return "arxiv"
}

// Scan fetches the first page of the listing. The "show" option overrides the page size.
func (a *ArxivScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	pageSize := a.pageSize
	if v, err := strconv.Atoi(req.Options["show"]); err == nil && v > 0 {
		pageSize = v
	}

	pageURL, err := buildPageURL(req.FeedURL, 0, pageSize)
	if err != nil {
		return nil, err
	}

	doc, err := a.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", req.FeedURL, err)
	}

	var articles []domain.Article
	seen := map[string]struct{}{}
	doc.Find("dl > dt").Each(func(_ int, dt *goquery.Selection) {
		article, ok := parseEntry(dt, dt.Next())
		if !ok {
			return
		}
		if _, dup := seen[article.URL]; dup {
			return
		}
		seen[article.URL] = struct{}{}
		articles = append(articles, article)
	})

	a.logger.Debug("arxiv listing scanned", "url", pageURL, "articles", len(articles))
	return articles, nil
}

func (a *ArxivScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "DailyDigestBot/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func parseEntry(dt, dd *goquery.Selection) (domain.Article, bool) {
	href, ok := dt.Find("a[href*=\"/abs/\"]").First().Attr("href")
	if !ok || href == "" {
		return domain.Article{}, false
	}
	if !strings.HasPrefix(href, "http") {
		href = strings.TrimSuffix(arxivBaseURL, "/") + href
	}

	title := collapseSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))

	abstract := collapseSpace(dd.Find("p.mathjax").First().Text())
	abstract = strings.TrimSpace(strings.TrimPrefix(abstract, "Abstract:"))
	if abstract == "" {
		abstract = title
	}

	return domain.Article{URL: href, Title: title, Content: abstract}, true
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid listing url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
