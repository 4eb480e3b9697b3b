package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"DailyDigest/internal/domain"
	"DailyDigest/internal/logging"
	"DailyDigest/internal/metrics"
	"DailyDigest/internal/ports"
)

const (
	// DefaultBatchSize caps the number of in-flight oracle calls.
	DefaultBatchSize = 20

	batchContentLimit  = 400
	singleContentLimit = 1000

	matchMaxTokens   = 10
	matchTemperature = 0.2
)

const topicPrompt = `Decide whether an article is directly and specifically about a topic. Do not be overly strict.

RULES:
- Answer "YES" only if the article directly discusses the topic or is primarily about it
- Vague or indirect connections do not count
- Passing mentions do not count
- The article should matter to someone who follows this topic

TOPIC: "%s"

ARTICLE:
Title: "%s"
Content: %s

Is this article directly and specifically about "%s"?

Answer with exactly YES or NO.`

const interestsPrompt = `Decide whether an article matches any of a reader's interests.

ARTICLE:
Title: "%s"
Content: ` + "```" + `
%s
` + "```" + `

READER INTERESTS:
%s

INSTRUCTIONS:
1. Read the title and content
2. Compare them with every interest above
3. Related or adjacent subjects count as a match
4. One matching interest is enough

Answer with exactly YES if the article matches any interest, otherwise NO.

Answer:`

// Options tunes a Classifier.
type Options struct {
	BatchSize int
	Logger    *slog.Logger
	Metrics   *metrics.Collector
}

// Classifier matches articles against topics through the inference oracle.
type Classifier struct {
	oracle    ports.InferenceOracle
	batchSize int
	logger    *slog.Logger
	metrics   *metrics.Collector
}

type pairRequest struct {
	topic   int
	article int
	prompt  string
}

// New builds a classifier; a non-positive batch size uses DefaultBatchSize.
func New(oracle ports.InferenceOracle, opts Options) *Classifier {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Classifier{
		oracle:    oracle,
		batchSize: opts.BatchSize,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

// ClassifyAll evaluates every (topic, article) pair and returns, per topic
// position, the ascending positions of matching articles. Batches run one
// after another; the calls inside a batch run concurrently. A batch with any
// failed call contributes no matches. The call itself never fails.
func (c *Classifier) ClassifyAll(ctx context.Context, topics []string, articles []domain.Article) domain.MatchIndex {
	matches := domain.MatchIndex{}
	if len(topics) == 0 || len(articles) == 0 {
		return matches
	}

	requests := buildRequests(topics, articles)
	spans := Batches(len(requests), c.batchSize)
	c.logger.Debug("classify all", "topics", len(topics), "articles", len(articles), "pairs", len(requests), "batches", len(spans))

	for n, span := range spans {
		if err := ctx.Err(); err != nil {
			c.logger.Warn("classification cancelled", "completed_batches", n, "error", err)
			break
		}

		batch := requests[span[0]:span[1]]
		answers, err := c.runBatch(ctx, batch)
		if err != nil {
			c.metrics.BatchDropped()
			c.logger.Warn("classification batch dropped", "batch", n+1, "pairs", len(batch), "error", err)
			continue
		}

		for i, req := range batch {
			if IsMatch(answers[i]) {
				matches[req.topic] = append(matches[req.topic], req.article)
			}
		}
	}

	return matches
}

// ClassifyOne asks, in one oracle call, whether article matches any of the interests.
// Oracle failures are returned; callers treat them as no match.
func (c *Classifier) ClassifyOne(ctx context.Context, interests []domain.Interest, article domain.Article) (bool, error) {
	if len(interests) == 0 {
		return false, nil
	}

	lines := make([]string, 0, len(interests))
	for _, interest := range interests {
		lines = append(lines, fmt.Sprintf("Topic: %q (reader wants: %s)", interest.Topic, interest.Explanation))
	}
	prompt := fmt.Sprintf(interestsPrompt, article.Title, Truncate(article.Content, singleContentLimit), strings.Join(lines, "\n"))

	answer, err := c.oracle.Run(ctx, ports.InferenceRequest{Prompt: prompt})
	c.metrics.OracleCall("classify_one", err)
	if err != nil {
		return false, fmt.Errorf("classify %s: %w", article.URL, err)
	}
	return IsMatch(answer), nil
}

func (c *Classifier) runBatch(ctx context.Context, batch []pairRequest) ([]string, error) {
	answers := make([]string, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.batchSize)

	for i, req := range batch {
		g.Go(func() error {
			answer, err := c.oracle.Run(gctx, ports.InferenceRequest{
				Prompt:      req.prompt,
				MaxTokens:   matchMaxTokens,
				Temperature: matchTemperature,
			})
			c.metrics.OracleCall("classify_pair", err)
			if err != nil {
				return fmt.Errorf("topic %d article %d: %w", req.topic, req.article, err)
			}
			answers[i] = answer
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return answers, nil
}

func buildRequests(topics []string, articles []domain.Article) []pairRequest {
	requests := make([]pairRequest, 0, len(topics)*len(articles))
	for ti, topic := range topics {
		for ai, article := range articles {
			content := Truncate(article.Content, batchContentLimit)
			requests = append(requests, pairRequest{
				topic:   ti,
				article: ai,
				prompt:  fmt.Sprintf(topicPrompt, topic, article.Title, content, topic),
			})
		}
	}
	return requests
}

// Batches partitions n ordered items into consecutive [start, end) spans of at most size.
func Batches(n, size int) [][2]int {
	if size <= 0 {
		size = DefaultBatchSize
	}
	spans := make([][2]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		spans = append(spans, [2]int{start, min(start+size, n)})
	}
	return spans
}

// IsMatch interprets an oracle answer: only a leading "yes" counts.
func IsMatch(answer string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "yes")
}

// Truncate caps s at limit runes and marks the cut with "...".
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
