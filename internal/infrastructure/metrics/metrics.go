package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Posting metrics
	PostingsTotal   *prometheus.CounterVec
	PostingErrors   *prometheus.CounterVec
	PostingDuration prometheus.Histogram
	PostingAmount   *prometheus.HistogramVec

	// Account metrics
	AccountsCreated prometheus.Counter

	// Summary cache metrics
	SummaryCacheHits          prometheus.Counter
	SummaryCacheMisses        prometheus.Counter
	SummaryCacheInvalidations *prometheus.CounterVec

	// Event metrics
	EventsPublished *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on the default registerer.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Posting metrics
		PostingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moneyledger_postings_total",
				Help: "Total number of committed postings by kind",
			},
			[]string{"kind"},
		),
		PostingErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moneyledger_posting_errors_total",
				Help: "Total number of failed postings by error kind",
			},
			[]string{"error_kind"},
		),
		PostingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "moneyledger_posting_duration_seconds",
			Help:    "Duration of posting operations",
			Buckets: prometheus.DefBuckets,
		}),
		PostingAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "moneyledger_posting_amount",
				Help:    "Posting amounts",
				Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"kind"},
		),

		// Account metrics
		AccountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "moneyledger_accounts_created_total",
			Help: "Total number of accounts created",
		}),

		// Summary cache metrics
		SummaryCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "moneyledger_summary_cache_hits_total",
			Help: "Summary cache hits",
		}),
		SummaryCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "moneyledger_summary_cache_misses_total",
			Help: "Summary cache misses",
		}),
		SummaryCacheInvalidations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moneyledger_summary_cache_invalidations_total",
				Help: "Summary cache invalidations by outcome",
			},
			[]string{"status"},
		),

		// Event metrics
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moneyledger_events_published_total",
				Help: "Posting events handed to the publisher by outcome",
			},
			[]string{"status"},
		),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moneyledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "moneyledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Rate limiting metrics
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moneyledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),
	}
}
