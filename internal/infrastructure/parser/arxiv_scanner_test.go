package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"DailyDigest/internal/scanner"
)

const listingHTML = `<html><body>
<dl>
  <dt><a href="/abs/2410.00001" title="Abstract">arXiv:2410.00001</a></dt>
  <dd>
    <div class="list-title mathjax">Title:
      Scaling   Sparse Attention</div>
    <p class="mathjax">Abstract: We study sparse attention at scale.</p>
  </dd>
  <dt><a href="/abs/2410.00002">arXiv:2410.00002</a></dt>
  <dd>
    <div class="list-title mathjax">Title: Untitled Abstract</div>
  </dd>
  <dt><a href="/abs/2410.00001">arXiv:2410.00001</a></dt>
  <dd><div class="list-title mathjax">Title: Cross-list duplicate</div></dd>
  <dt><span>no link here</span></dt>
  <dd><div class="list-title mathjax">Title: Skipped</div></dd>
</dl>
</body></html>`

func TestBuildPageURL(t *testing.T) {
	t.Parallel()

	base := "https://export.arxiv.org/list/cs.AI/new"
	u, err := buildPageURL(base, 0, 50)
	if err != nil {
		t.Fatalf("buildPageURL returned error: %v", err)
	}

	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}

	if parsed.Host != "export.arxiv.org" || parsed.Path != "/list/cs.AI/new" {
		t.Fatalf("unexpected url: %s", u)
	}

	q := parsed.Query()
	if q.Get("skip") != "0" {
		t.Fatalf("expected skip=0, got %s", q.Get("skip"))
	}
	if q.Get("show") != "50" {
		t.Fatalf("expected show=50, got %s", q.Get("show"))
	}
}

func TestParseEntry(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listingHTML))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	dt := doc.Find("dt").First()
	article, ok := parseEntry(dt, dt.Next())
	if !ok {
		t.Fatalf("expected entry to parse")
	}

	if article.URL != "https://arxiv.org/abs/2410.00001" {
		t.Fatalf("unexpected url: %s", article.URL)
	}
	if article.Title != "Scaling Sparse Attention" {
		t.Fatalf("unexpected title: %q", article.Title)
	}
	if article.Content != "We study sparse attention at scale." {
		t.Fatalf("unexpected content: %q", article.Content)
	}
}

func TestParseEntryFallsBackToTitle(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listingHTML))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	dt := doc.Find("dt").Eq(1)
	article, ok := parseEntry(dt, dt.Next())
	if !ok {
		t.Fatalf("expected entry to parse")
	}
	if article.Content != article.Title {
		t.Fatalf("expected title as content, got %q", article.Content)
	}
}

func TestArxivScannerScan(t *testing.T) {
	t.Parallel()

	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	s := NewArxivScanner(srv.Client(), nil)
	articles, err := s.Scan(context.Background(), scanner.Request{
		FeedURL: srv.URL + "/list/cs.AI/new",
		Options: map[string]string{"show": "25"},
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if gotQuery.Get("show") != "25" {
		t.Fatalf("expected show option to be forwarded, got %q", gotQuery.Get("show"))
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 unique articles, got %d", len(articles))
	}
	if articles[1].URL != "https://arxiv.org/abs/2410.00002" {
		t.Fatalf("unexpected second url: %s", articles[1].URL)
	}
}

func TestArxivScannerHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewArxivScanner(srv.Client(), nil)
	if _, err := s.Scan(context.Background(), scanner.Request{FeedURL: srv.URL + "/list/cs.AI/new"}); err == nil {
		t.Fatalf("expected error for 503 response")
	}
}
