package usecase

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"DailyDigest/internal/classifier"
	"DailyDigest/internal/domain"
	"DailyDigest/internal/infrastructure/storage"
	"DailyDigest/internal/notify"
	"DailyDigest/internal/ports"
	"DailyDigest/internal/repository"
	"DailyDigest/internal/summarizer"
)

// scriptedOracle answers classification prompts from a topic -> titles table.
type scriptedOracle struct {
	mu      sync.Mutex
	matches map[string][]string
	fail    func(prompt string) error
	calls   int
}

func between(s, start, end string) string {
	_, rest, ok := strings.Cut(s, start)
	if !ok {
		return ""
	}
	out, _, _ := strings.Cut(rest, end)
	return out
}

func (o *scriptedOracle) Run(_ context.Context, req ports.InferenceRequest) (string, error) {
	o.mu.Lock()
	o.calls++
	o.mu.Unlock()

	if o.fail != nil {
		if err := o.fail(req.Prompt); err != nil {
			return "", err
		}
	}

	title := between(req.Prompt, `Title: "`, `"`)
	switch {
	case strings.Contains(req.Prompt, `TOPIC: "`):
		if slices.Contains(o.matches[between(req.Prompt, `TOPIC: "`, `"`)], title) {
			return "YES", nil
		}
		return "NO", nil
	case strings.Contains(req.Prompt, "READER INTERESTS"):
		for topic, titles := range o.matches {
			if strings.Contains(req.Prompt, `Topic: "`+topic+`"`) && slices.Contains(titles, title) {
				return "YES", nil
			}
		}
		return "NO", nil
	default:
		return "Fresh developments this week.", nil
	}
}

func (o *scriptedOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

type recordingSender struct {
	mu   sync.Mutex
	sent []ports.Email
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg ports.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

type recordingNotifier struct {
	mu      sync.Mutex
	digests []string
	err     error
}

func (r *recordingNotifier) PublishDigest(_ context.Context, digest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.digests = append(r.digests, digest)
	return r.err
}

type stubFeeds struct {
	articles []domain.Article
	err      error
}

func (s stubFeeds) Fetch(context.Context, string) ([]domain.Article, error) {
	return s.articles, s.err
}

// brokenKV fails every write.
type brokenKV struct {
	ports.KVStore
}

func (brokenKV) Put(context.Context, string, []byte, time.Duration) error {
	return errors.New("disk full")
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	pipeline  *Pipeline
	oracle    *scriptedOracle
	sender    *recordingSender
	notifier  *recordingNotifier
	users     *repository.UserRepository
	articles  *repository.ArticleRepository
	briefings *repository.BriefingRepository
	clock     *testClock
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	briefingKV ports.KVStore
	feeds      ports.FeedFetcher
	batchSize  int
}

func withBriefingStore(kv ports.KVStore) harnessOption {
	return func(c *harnessConfig) { c.briefingKV = kv }
}

func withFeeds(f ports.FeedFetcher) harnessOption {
	return func(c *harnessConfig) { c.feeds = f }
}

func newHarness(matches map[string][]string, opts ...harnessOption) *harness {
	clock := &testClock{now: time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)}
	cfg := harnessConfig{briefingKV: storage.NewMemoryStore().WithClock(clock.Now)}
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &harness{
		oracle:    &scriptedOracle{matches: matches},
		sender:    &recordingSender{},
		notifier:  &recordingNotifier{},
		users:     repository.NewUserRepository(storage.NewMemoryStore()),
		articles:  repository.NewArticleRepository(storage.NewMemoryStore().WithClock(clock.Now), clock.Now),
		briefings: repository.NewBriefingRepository(cfg.briefingKV, 0),
		clock:     clock,
	}

	h.pipeline = NewPipeline(PipelineDeps{
		Articles:   h.articles,
		Users:      h.users,
		Briefings:  h.briefings,
		Classifier: classifier.New(h.oracle, classifier.Options{BatchSize: cfg.batchSize}),
		Summarizer: summarizer.New(h.oracle, nil, nil),
		Dispatcher: notify.NewDispatcher(notify.DispatcherDeps{
			Sender:  h.sender,
			From:    "digest@example.com",
			BaseURL: "https://digest.test",
		}),
		Feeds:    cfg.feeds,
		Notifier: h.notifier,
		Clock:    clock.Now,
	})
	return h
}

func (h *harness) ingest(titles ...string) {
	for _, title := range titles {
		_, _, err := h.articles.Put(context.Background(), domain.Article{
			URL:     "https://news.test/" + strings.ReplaceAll(title, " ", "-"),
			Title:   title,
			Content: title + " body",
		})
		if err != nil {
			panic(err)
		}
	}
}
