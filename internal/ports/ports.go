package ports

import (
	"context"
	"errors"
	"time"

	"DailyDigest/internal/domain"
)

// ErrKeyNotFound is returned by KVStore.Get for absent or expired keys.
var ErrKeyNotFound = errors.New("key not found")

// KVStore is a namespaced key-value capability with optional expiry.
// A ttl of zero means the entry never expires.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// PutIfAbsent stores value only when key is absent and reports whether it did.
	PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// InferenceRequest carries a single completion request for the oracle.
type InferenceRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// InferenceOracle runs a prompt through a text model and returns its raw answer.
type InferenceOracle interface {
	Run(ctx context.Context, req InferenceRequest) (string, error)
}

// Email is a rendered message ready for delivery.
type Email struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// EmailSender delivers rendered emails.
type EmailSender interface {
	Send(ctx context.Context, msg Email) error
}

// FeedFetcher turns a feed location into canonical articles.
type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]domain.Article, error)
}

// Notifier streams plain-text notices (routing hits, sweep digests) to a side channel.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
