package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"DailyDigest/internal/domain"
	"DailyDigest/internal/logging"
	"DailyDigest/internal/metrics"
	"DailyDigest/internal/usecase"
)

// Service is the subset of the pipeline exposed over HTTP.
type Service interface {
	Register(ctx context.Context, email string, interests []domain.Interest) (usecase.BriefingResult, error)
	IngestArticle(ctx context.Context, title, content, url string) (usecase.IngestResult, error)
	IngestFeed(ctx context.Context, feedURL string) (usecase.IngestReport, error)
	NotifyRecent(ctx context.Context, email string) (usecase.NotifyReport, error)
	GetBriefing(ctx context.Context, email string) (usecase.BriefingResult, error)
	GetBriefingByKey(ctx context.Context, key string) (domain.Briefing, error)
	SendBriefing(ctx context.Context, email string, briefing domain.Briefing) (bool, error)
}

// Options tunes the router.
type Options struct {
	AllowedOrigins []string
	Logger         *slog.Logger
	Metrics        *metrics.Collector
}

// NewRouter builds the HTTP surface of the digest service.
func NewRouter(svc Service, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	h := &Handler{svc: svc, logger: logger}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(requestLogger(logger, opts.Metrics))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", briefingKeyHeader},
		MaxAge:         300,
	}))

	router.Get("/health", health)
	if opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	router.Route("/api", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/new-article", h.NewArticle)
		r.Post("/ingest-rss", h.IngestFeed)
		r.Post("/notify-recent", h.NotifyRecent)
		r.Post("/send-briefing-email", h.SendBriefingEmail)
		r.Get("/briefing", h.Briefing)
		r.Get("/get-briefing/{key}", h.StoredBriefing)
	})

	return router
}

func health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
