// Package metrics exposes Prometheus collectors for place lookups, the
// built-in crawler, and the metrics HTTP endpoint itself.
package metrics

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JakeFAU/coffeemap/internal/cafe"
)

var (
	lookupRequestsTotal        *prometheus.CounterVec
	lookupDurationSeconds      *prometheus.HistogramVec
	lookupRetriesTotal         prometheus.Counter
	lookupRateLimitDelays      prometheus.Histogram
	crawlPagesTotal            *prometheus.CounterVec
	crawlBytesTotal            *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors on the default
// registry. It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		lookupRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coffeemap_lookup_requests_total",
				Help: "Place lookup attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		lookupDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coffeemap_lookup_duration_seconds",
				Help:    "Histogram of place lookup latencies, labeled by outcome.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"outcome"},
		)

		lookupRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "coffeemap_lookup_retries_total",
				Help: "Total place lookup retries after transport failures.",
			},
		)

		lookupRateLimitDelays = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "coffeemap_lookup_rate_limit_delay_seconds",
				Help:    "Histogram of time spent waiting on the lookup rate limiter.",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10},
			},
		)

		crawlPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coffeemap_crawl_pages_total",
				Help: "Pages fetched by the built-in crawler, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		crawlBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coffeemap_crawl_bytes_total",
				Help: "Bytes fetched by the built-in crawler, labeled by site.",
			},
			[]string{"site"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// LookupOutcome labels a lookup result: "ok" or the lookup error kind.
func LookupOutcome(err error) string {
	if err == nil {
		return "ok"
	}
	var lookupErr *cafe.LookupError
	if errors.As(err, &lookupErr) {
		return lookupErr.Kind.String()
	}
	return "other"
}

// ObserveLookup records one place lookup attempt.
func ObserveLookup(err error, duration time.Duration) {
	Init()
	outcome := LookupOutcome(err)
	lookupRequestsTotal.WithLabelValues(outcome).Inc()
	lookupDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveLookupRetry counts a retried lookup.
func ObserveLookupRetry() {
	Init()
	lookupRetriesTotal.Inc()
}

// ObserveRateLimitDelay records the duration of a lookup rate limit wait.
func ObserveRateLimitDelay(duration time.Duration) {
	Init()
	lookupRateLimitDelays.Observe(duration.Seconds())
}

// ObserveCrawl increments the crawler page metrics.
func ObserveCrawl(site string, status int, bytesFetched int) {
	Init()
	sanitizedSite := SanitizeSite(site)
	crawlPagesTotal.WithLabelValues(sanitizedSite, strconv.Itoa(status)).Inc()
	if bytesFetched > 0 {
		crawlBytesTotal.WithLabelValues(sanitizedSite).Add(float64(bytesFetched))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
