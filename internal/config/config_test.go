package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
logging:
  level: warn
  format: json
storage:
  driver: memory
oracle:
  provider: openai
  chatgpt:
    model: gpt-test
classifier:
  batchSize: 5
briefing:
  ttlHours: 48
  baseUrl: https://digest.example.com
scheduler:
  intervalMinutes: 15
  timezone: Europe/Berlin
feeds:
  - name: go
    url: https://go.dev/blog/feed.atom
  - name: arxiv
    url: https://arxiv.org/list/cs.AI/recent
    scanner: arxiv
    options:
      show: "50"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	t.Setenv(configPathEnv, writeConfig(t, sampleYAML))

	cfg := Load()

	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "json" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Fatalf("expected memory driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Oracle.Provider != ProviderOpenAI || cfg.Oracle.ChatGPT.Model != "gpt-test" {
		t.Fatalf("unexpected oracle config: %+v", cfg.Oracle)
	}
	if cfg.Oracle.ChatGPT.Endpoint == "" {
		t.Fatalf("expected default endpoint to survive merge")
	}
	if cfg.Classifier.BatchSize != 5 || cfg.Classifier.Window() != 24*time.Hour {
		t.Fatalf("unexpected classifier config: %+v", cfg.Classifier)
	}
	if cfg.Briefing.TTL() != 48*time.Hour || cfg.Briefing.BaseURL != "https://digest.example.com" {
		t.Fatalf("unexpected briefing config: %+v", cfg.Briefing)
	}
	if cfg.Scheduler.Interval() != 15*time.Minute {
		t.Fatalf("expected 15m interval, got %s", cfg.Scheduler.Interval())
	}
	if got := cfg.Scheduler.Location().String(); got != "Europe/Berlin" {
		t.Fatalf("expected Europe/Berlin, got %s", got)
	}
	urls := cfg.FeedURLs()
	if len(urls) != 2 || urls[1] != "https://arxiv.org/list/cs.AI/recent" {
		t.Fatalf("unexpected feed urls: %v", urls)
	}
	if cfg.Feeds[1].Options["show"] != "50" {
		t.Fatalf("expected feed options, got %+v", cfg.Feeds[1])
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databaseDSNEnv, "postgres://digest@localhost/digest")
	t.Setenv(workersAITokenEnv, "cf-token")
	t.Setenv(workersAIAcctEnv, "acct")
	t.Setenv(resendAPIKeyEnv, "re_key")
	t.Setenv(httpAddrEnv, ":9000")

	cfg := Load()

	if cfg.Storage.Driver != DriverPostgres || cfg.Storage.DSN != "postgres://digest@localhost/digest" {
		t.Fatalf("expected dsn to select postgres, got %+v", cfg.Storage)
	}
	if cfg.Oracle.ML.APIKey != "cf-token" {
		t.Fatalf("expected workers ai token override")
	}
	if got, want := cfg.Oracle.ML.WorkersAIEndpoint(), "https://api.cloudflare.com/client/v4/accounts/acct/ai/run"; got != want {
		t.Fatalf("expected endpoint %s, got %s", want, got)
	}
	if cfg.Email.APIKey != "re_key" || cfg.HTTP.Addr != ":9000" {
		t.Fatalf("unexpected overrides: %+v %+v", cfg.Email, cfg.HTTP)
	}
}

func TestExplicitDriverWinsOverDSN(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databaseDSNEnv, "postgres://digest@localhost/digest")
	t.Setenv(storageDriverEnv, DriverSQLite)

	cfg := Load()
	if cfg.Storage.Driver != DriverSQLite {
		t.Fatalf("expected sqlite driver, got %q", cfg.Storage.Driver)
	}
}

func TestLoadFallsBackOnBadFile(t *testing.T) {
	t.Setenv(configPathEnv, writeConfig(t, "feeds: [unterminated"))

	cfg := Load()
	if cfg.Classifier.BatchSize != 20 || cfg.Briefing.TTL() != 7*24*time.Hour {
		t.Fatalf("expected defaults, got %+v %+v", cfg.Classifier, cfg.Briefing)
	}
	if cfg.Scheduler.Location() == nil {
		t.Fatalf("expected a bound location")
	}
}

func TestReadFileErrors(t *testing.T) {
	t.Parallel()

	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestWorkersAIEndpointPrefersExplicitURL(t *testing.T) {
	t.Parallel()

	m := MLConfig{InferenceURL: "http://localhost:8080/run", AccountID: "acct"}
	if got := m.WorkersAIEndpoint(); got != "http://localhost:8080/run" {
		t.Fatalf("expected explicit url, got %s", got)
	}
	if got := (MLConfig{}).WorkersAIEndpoint(); got != "" {
		t.Fatalf("expected empty endpoint, got %s", got)
	}
}
