package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/JakeFAU/coffeemap/internal/cafe"
	"github.com/JakeFAU/coffeemap/internal/metrics"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// CollyConfig configures the in-process crawler feed.
type CollyConfig struct {
	SeedURL           string
	MatchPattern      string
	MaxDepth          int
	RequestsPerSecond int
	UserAgent         string
}

// NewCollySource crawls from cfg.SeedURL within the seed host and emits a
// record for every fetched page whose URL matches cfg.MatchPattern.
func NewCollySource(ctx context.Context, cfg CollyConfig, logger *zap.Logger) (*Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	seed, err := url.Parse(cfg.SeedURL)
	if err != nil || !seed.IsAbs() {
		return nil, fmt.Errorf("invalid seed url %q", cfg.SeedURL)
	}
	match, err := regexp.Compile(cfg.MatchPattern)
	if err != nil {
		return nil, fmt.Errorf("compile match pattern: %w", err)
	}

	return Start(ctx, func(ctx context.Context, emit Emit) error {
		collector := newCollector(ctx, cfg, seed)
		if err := collector.Limit(limitRule(cfg.RequestsPerSecond)); err != nil {
			return fmt.Errorf("set collector limits: %w", err)
		}

		stopped := false
		collector.OnRequest(func(r *colly.Request) {
			if stopped || ctx.Err() != nil {
				r.Abort()
			}
		})
		collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
			if stopped {
				return
			}
			if err := e.Request.Visit(e.Attr("href")); err != nil && !benignVisitError(err) {
				logger.Debug("Skipping link", zap.String("href", e.Attr("href")), zap.Error(err))
			}
		})
		collector.OnResponse(func(r *colly.Response) {
			metrics.ObserveCrawl(r.Request.URL.String(), r.StatusCode, len(r.Body))
			if stopped || r.StatusCode != http.StatusOK || !match.MatchString(r.Request.URL.String()) {
				return
			}
			endpoint := *r.Request.URL
			rec := cafe.CrawlRecord{
				Endpoint: &endpoint,
				Details:  ExtractDetails(string(r.Body)),
			}
			if !emit(rec, nil) {
				stopped = true
			}
		})
		collector.OnError(func(r *colly.Response, err error) {
			metrics.ObserveCrawl(r.Request.URL.String(), r.StatusCode, len(r.Body))
			logger.Warn("Crawl request failed",
				zap.String("url", r.Request.URL.String()),
				zap.Int("status_code", r.StatusCode),
				zap.Error(err),
			)
		})

		if err := collector.Visit(seed.String()); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("visit seed %s: %w", seed, err)
		}
		collector.Wait()
		if stopped {
			return ctx.Err()
		}
		return nil
	}), nil
}

func newCollector(ctx context.Context, cfg CollyConfig, seed *url.URL) *colly.Collector {
	depth := cfg.MaxDepth
	if depth < 1 {
		depth = 1
	}
	opts := []colly.CollectorOption{
		colly.AllowedDomains(seed.Hostname()),
		colly.MaxDepth(depth),
		colly.StdlibContext(ctx),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(cfg.UserAgent))
	}
	collector := colly.NewCollector(opts...)
	collector.AllowURLRevisit = false
	return collector
}

func limitRule(rps int) *colly.LimitRule {
	rule := &colly.LimitRule{DomainGlob: "*", Parallelism: 1}
	if rps > 0 {
		rule.Delay = time.Second / time.Duration(rps)
	}
	return rule
}

func benignVisitError(err error) bool {
	var visited *colly.AlreadyVisitedError
	return errors.As(err, &visited) ||
		errors.Is(err, colly.ErrMaxDepth) ||
		errors.Is(err, colly.ErrForbiddenDomain) ||
		errors.Is(err, colly.ErrAbortedAfterHeaders) ||
		errors.Is(err, colly.ErrMissingURL)
}
