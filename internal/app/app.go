package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"DailyDigest/internal/api"
	"DailyDigest/internal/classifier"
	"DailyDigest/internal/config"
	"DailyDigest/internal/infrastructure/email"
	"DailyDigest/internal/infrastructure/llm"
	"DailyDigest/internal/infrastructure/ml"
	"DailyDigest/internal/infrastructure/parser"
	"DailyDigest/internal/infrastructure/scheduler"
	"DailyDigest/internal/infrastructure/storage"
	"DailyDigest/internal/infrastructure/telegram"
	"DailyDigest/internal/logging"
	"DailyDigest/internal/metrics"
	"DailyDigest/internal/notify"
	"DailyDigest/internal/ports"
	"DailyDigest/internal/repository"
	"DailyDigest/internal/scanner"
	"DailyDigest/internal/summarizer"
	"DailyDigest/internal/usecase"
)

const (
	usersNamespace     = "users"
	articlesNamespace  = "articles"
	briefingsNamespace = "briefings"

	shutdownTimeout = 10 * time.Second
)

var errOracleDisabled = errors.New("inference oracle is not configured")

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	metrics   *metrics.Collector
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	handler   http.Handler
	closers   []func() error
}

// New opens storage and builds every component described by cfg.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	a := &Application{
		cfg:     cfg,
		logger:  baseLogger,
		metrics: metrics.NewCollector("daily_digest"),
	}

	stores, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}

	oracle := a.buildOracle()

	registry := scanner.NewRegistry()
	registry.Register(parser.NewRSSScanner(nil, baseLogger.With("component", "scanner.rss")))
	registry.Register(parser.NewArxivScanner(nil, baseLogger.With("component", "scanner.arxiv")))
	source := parser.NewStrategySource(registry, cfg.Feeds, baseLogger.With("component", "source"))

	var sender ports.EmailSender
	if cfg.Email.APIKey != "" {
		sender = email.NewResendSender(cfg.Email)
	} else {
		baseLogger.Warn("email api key missing, briefings will not be emailed")
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" && cfg.Notifications.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram)
	} else {
		notifier = telegram.NewLogNotifier(baseLogger.With("component", "notifier"))
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Articles:  repository.NewArticleRepository(stores(articlesNamespace), nil),
		Users:     repository.NewUserRepository(stores(usersNamespace)),
		Briefings: repository.NewBriefingRepository(stores(briefingsNamespace), cfg.Briefing.TTL()),
		Classifier: classifier.New(oracle, classifier.Options{
			BatchSize: cfg.Classifier.BatchSize,
			Logger:    baseLogger.With("component", "classifier"),
			Metrics:   a.metrics,
		}),
		Summarizer: summarizer.New(oracle, baseLogger.With("component", "summarizer"), a.metrics),
		Dispatcher: notify.NewDispatcher(notify.DispatcherDeps{
			Sender:  sender,
			From:    cfg.Email.From,
			BaseURL: cfg.Briefing.BaseURL,
			Logger:  baseLogger.With("component", "dispatcher"),
			Metrics: a.metrics,
		}),
		Feeds:        source,
		Notifier:     notifier,
		Logger:       baseLogger.With("component", "pipeline"),
		Metrics:      a.metrics,
		RecentWindow: cfg.Classifier.Window(),
	})

	if interval := cfg.Scheduler.Interval(); interval > 0 {
		driver := scheduler.NewTickerScheduler(interval, cfg.Scheduler.Location())
		a.scheduler = usecase.NewScheduler(driver, a.pipeline, cfg.FeedURLs())
	}

	a.handler = api.NewRouter(a.pipeline, api.Options{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Logger:         baseLogger.With("component", "http"),
		Metrics:        a.metrics,
	})

	return a, nil
}

// Pipeline exposes the use cases for one-shot CLI commands.
func (a *Application) Pipeline() *usecase.Pipeline {
	return a.pipeline
}

// Handler returns the HTTP surface.
func (a *Application) Handler() http.Handler {
	return a.handler
}

// Serve runs the HTTP server and the feed poller until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := a.scheduler.Stop(stopCtx); err != nil {
				a.logger.Warn("scheduler stop failed", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.cfg.HTTP.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

// Close releases storage handles.
func (a *Application) Close() error {
	var errs []error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openStores returns a factory of namespaced stores for the configured driver.
func (a *Application) openStores(ctx context.Context) (func(namespace string) ports.KVStore, error) {
	cfg := a.cfg.Storage
	switch cfg.Driver {
	case config.DriverMemory:
		return func(string) ports.KVStore { return storage.NewMemoryStore() }, nil

	case config.DriverSQLite, "":
		db, err := storage.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		a.logger.Info("sqlite storage opened", "path", cfg.Path)
		return a.sqlStores(db, storage.SQLite), nil

	case config.DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres storage requires a dsn")
		}
		db, err := storage.OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		a.logger.Info("postgres storage opened")
		return a.sqlStores(db, storage.Postgres), nil

	case config.DriverDynamoDB:
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg)
		a.logger.Info("dynamodb storage configured", "table", cfg.Table)
		return func(namespace string) ports.KVStore {
			return storage.NewDynamoStore(client, cfg.Table, namespace)
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func (a *Application) sqlStores(db *sql.DB, dialect storage.Dialect) func(string) ports.KVStore {
	a.closers = append(a.closers, db.Close)
	return func(namespace string) ports.KVStore {
		return storage.NewSQLStore(db, dialect, namespace)
	}
}

func (a *Application) buildOracle() ports.InferenceOracle {
	cfg := a.cfg.Oracle
	logger := a.logger.With("component", "oracle")

	var oracle ports.InferenceOracle
	switch cfg.Provider {
	case config.ProviderOpenAI:
		if cfg.ChatGPT.APIKey != "" {
			oracle = llm.NewChatGPTClient(cfg.ChatGPT)
		}
	default:
		mlCfg := cfg.ML
		mlCfg.InferenceURL = mlCfg.WorkersAIEndpoint()
		if mlCfg.InferenceURL != "" && mlCfg.APIKey != "" {
			oracle = ml.NewClient(mlCfg)
		}
	}

	if oracle == nil {
		logger.Warn("no oracle credentials, classification and summaries will fall back", "provider", cfg.Provider)
		return disabledOracle{}
	}
	if cfg.Breaker.Enabled {
		oracle = llm.NewBreaker(oracle, cfg.Breaker, logger)
	}
	logger.Info("oracle configured", "provider", cfg.Provider)
	return oracle
}

// disabledOracle fails every call so callers take their degraded paths.
type disabledOracle struct{}

func (disabledOracle) Run(context.Context, ports.InferenceRequest) (string, error) {
	return "", errOracleDisabled
}
