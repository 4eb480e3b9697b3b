package usecase

import (
	"log/slog"
	"time"

	"DailyDigest/internal/classifier"
	"DailyDigest/internal/logging"
	"DailyDigest/internal/metrics"
	"DailyDigest/internal/notify"
	"DailyDigest/internal/ports"
	"DailyDigest/internal/repository"
	"DailyDigest/internal/summarizer"
)

// PipelineDeps wires stores, oracle-backed components, and adapters into the pipeline.
type PipelineDeps struct {
	Articles   *repository.ArticleRepository
	Users      *repository.UserRepository
	Briefings  *repository.BriefingRepository
	Classifier *classifier.Classifier
	Summarizer *summarizer.Summarizer
	Dispatcher *notify.Dispatcher
	Feeds      ports.FeedFetcher
	Notifier   ports.Notifier
	Logger     *slog.Logger
	Metrics    *metrics.Collector
	// RecentWindow bounds which articles count as new; zero means 24h.
	RecentWindow time.Duration
	Clock        func() time.Time
}

// Pipeline implements registration, ingestion, and briefing workflows.
// Every operation is request-scoped; the only shared state lives in the stores.
type Pipeline struct {
	articles   *repository.ArticleRepository
	users      *repository.UserRepository
	briefings  *repository.BriefingRepository
	classifier *classifier.Classifier
	summarizer *summarizer.Summarizer
	dispatcher *notify.Dispatcher
	feeds      ports.FeedFetcher
	notifier   ports.Notifier
	logger     *slog.Logger
	metrics    *metrics.Collector
	window     time.Duration
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.RecentWindow <= 0 {
		deps.RecentWindow = repository.DefaultRecentWindow
	}
	return &Pipeline{
		articles:   deps.Articles,
		users:      deps.Users,
		briefings:  deps.Briefings,
		classifier: deps.Classifier,
		summarizer: deps.Summarizer,
		dispatcher: deps.Dispatcher,
		feeds:      deps.Feeds,
		notifier:   deps.Notifier,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		window:     deps.RecentWindow,
		now:        deps.Clock,
	}
}
