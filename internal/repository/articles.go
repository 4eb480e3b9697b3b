package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"DailyDigest/internal/domain"
	"DailyDigest/internal/ports"
)

// DefaultRecentWindow is the rolling span treated as "new" for briefings.
const DefaultRecentWindow = 24 * time.Hour

// ArticleRepository stores articles keyed by URL with first-write-wins semantics.
type ArticleRepository struct {
	kv  ports.KVStore
	now func() time.Time
}

// NewArticleRepository wraps the article namespace of the key-value store.
func NewArticleRepository(kv ports.KVStore, now func() time.Time) *ArticleRepository {
	if now == nil {
		now = time.Now
	}
	return &ArticleRepository{kv: kv, now: now}
}

// Put stamps and stores the article unless its URL is already known.
// The stored copy and whether it was created are returned.
func (r *ArticleRepository) Put(ctx context.Context, article domain.Article) (domain.Article, bool, error) {
	if article.URL == "" {
		return domain.Article{}, false, fmt.Errorf("article url is required: %w", domain.ErrInvalidInput)
	}

	// Stored timestamps carry millisecond precision.
	article.IngestedAt = r.now().UTC().Truncate(time.Millisecond)
	payload, err := json.Marshal(article)
	if err != nil {
		return domain.Article{}, false, fmt.Errorf("marshal article: %w", err)
	}

	created, err := r.kv.PutIfAbsent(ctx, article.URL, payload, 0)
	if err != nil {
		return domain.Article{}, false, fmt.Errorf("store article %s: %w", article.URL, err)
	}
	if !created {
		existing, err := r.Get(ctx, article.URL)
		if err != nil {
			return domain.Article{}, false, err
		}
		return existing, false, nil
	}
	return article, true, nil
}

// Get loads an article by URL.
func (r *ArticleRepository) Get(ctx context.Context, url string) (domain.Article, error) {
	raw, err := r.kv.Get(ctx, url)
	if err != nil {
		if errors.Is(err, ports.ErrKeyNotFound) {
			return domain.Article{}, fmt.Errorf("article %s: %w", url, domain.ErrNotFound)
		}
		return domain.Article{}, fmt.Errorf("load article %s: %w", url, err)
	}

	var article domain.Article
	if err := json.Unmarshal(raw, &article); err != nil {
		return domain.Article{}, fmt.Errorf("decode article %s: %w", url, err)
	}
	return article, nil
}

// Recent scans the whole store and keeps articles ingested within window.
// A non-positive window falls back to DefaultRecentWindow.
func (r *ArticleRepository) Recent(ctx context.Context, window time.Duration) ([]domain.Article, error) {
	if window <= 0 {
		window = DefaultRecentWindow
	}
	cutoff := r.now().Add(-window)

	keys, err := r.kv.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	recent := make([]domain.Article, 0, len(keys))
	for _, key := range keys {
		article, err := r.Get(ctx, key)
		if err != nil {
			// Listed keys can disappear between List and Get.
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if article.IngestedAt.IsZero() || article.IngestedAt.Before(cutoff) {
			continue
		}
		recent = append(recent, article)
	}
	return recent, nil
}
