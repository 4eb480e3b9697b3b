package domain

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

// Article is a piece of ingested content, identified by its canonical URL.
type Article struct {
	URL        string
	Title      string
	Content    string
	IngestedAt time.Time
}

// articleJSON is the stored shape; the ingestion time is kept as unix millis.
type articleJSON struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// MarshalJSON implements json.Marshaler.
func (a Article) MarshalJSON() ([]byte, error) {
	var ts int64
	if !a.IngestedAt.IsZero() {
		ts = a.IngestedAt.UnixMilli()
	}
	return json.Marshal(articleJSON{
		URL:       a.URL,
		Title:     a.Title,
		Content:   a.Content,
		Timestamp: ts,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Article) UnmarshalJSON(data []byte) error {
	var raw articleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.URL = raw.URL
	a.Title = raw.Title
	a.Content = raw.Content
	a.IngestedAt = time.Time{}
	if raw.Timestamp > 0 {
		a.IngestedAt = time.UnixMilli(raw.Timestamp).UTC()
	}
	return nil
}

// ArticleRef is the reference to a matched article embedded in a briefing.
type ArticleRef struct {
	Title  string `json:"title"`
	Source string `json:"source"`
	URL    string `json:"url"`
}

// RefFor derives the briefing reference for an article.
func RefFor(a Article) ArticleRef {
	return ArticleRef{
		Title:  a.Title,
		Source: SourceFromURL(a.URL),
		URL:    a.URL,
	}
}

// SourceFromURL returns the host of rawURL without scheme and leading "www.".
// Values that do not parse as an absolute URL are returned unchanged.
func SourceFromURL(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Hostname() == "" {
		return rawURL
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}
