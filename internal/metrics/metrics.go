package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics of the digest pipeline.
// All methods are safe on a nil receiver so components can run without metrics.
type Collector struct {
	registry *prometheus.Registry

	OracleCalls      *prometheus.CounterVec
	BatchesDropped   prometheus.Counter
	ArticlesIngested *prometheus.CounterVec
	BriefingsBuilt   *prometheus.CounterVec
	EmailsSent       *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// NewCollector creates a collector registered on its own registry.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		OracleCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_calls_total",
			Help:      "Inference oracle calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		BatchesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_batches_dropped_total",
			Help:      "Classification batches discarded after an oracle failure",
		}),
		ArticlesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_ingested_total",
			Help:      "Ingestion attempts by result",
		}, []string{"result"}),
		BriefingsBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "briefings_built_total",
			Help:      "Briefings assembled by persistence outcome",
		}, []string{"persisted"}),
		EmailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Briefing emails by delivery outcome",
		}, []string{"outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		c.OracleCalls,
		c.BatchesDropped,
		c.ArticlesIngested,
		c.BriefingsBuilt,
		c.EmailsSent,
		c.HTTPRequests,
		c.HTTPDuration,
	)
	return c
}

// Handler exposes the collector's registry.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// OracleCall counts one oracle call for operation by outcome.
func (c *Collector) OracleCall(operation string, err error) {
	if c == nil {
		return
	}
	c.OracleCalls.WithLabelValues(operation, outcome(err)).Inc()
}

// BatchDropped counts a classification batch discarded after a failure.
func (c *Collector) BatchDropped() {
	if c == nil {
		return
	}
	c.BatchesDropped.Inc()
}

// ArticleIngested counts an ingestion as created or duplicate.
func (c *Collector) ArticleIngested(created bool) {
	if c == nil {
		return
	}
	result := "duplicate"
	if created {
		result = "created"
	}
	c.ArticlesIngested.WithLabelValues(result).Inc()
}

// BriefingBuilt counts an assembled briefing by whether it was persisted.
func (c *Collector) BriefingBuilt(persisted bool) {
	if c == nil {
		return
	}
	label := "false"
	if persisted {
		label = "true"
	}
	c.BriefingsBuilt.WithLabelValues(label).Inc()
}

// EmailSent counts a delivery attempt by result.
func (c *Collector) EmailSent(ok bool) {
	if c == nil {
		return
	}
	label := "failure"
	if ok {
		label = "success"
	}
	c.EmailsSent.WithLabelValues(label).Inc()
}

// HTTPRequest records count and latency for a served route.
func (c *Collector) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
