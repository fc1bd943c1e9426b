// Package collyfetcher queries the catalog thing endpoint using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/crawler"
	"github.com/JakeFAU/bgg-catalog-harvester/internal/metrics"
)

// DefaultBaseURL is the public thing endpoint of the catalog API.
const DefaultBaseURL = "https://boardgamegeek.com/xmlapi2/thing"

// Config controls collector behavior.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Waiter paces requests. *ratelimit.Limiter satisfies it.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Fetcher implements crawler.BatchFetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	limiter       Waiter
	logger        *zap.Logger
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithLimiter paces every attempt, retries included.
func WithLimiter(l Waiter) Option {
	return func(f *Fetcher) {
		f.limiter = l
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithTransport overrides the HTTP transport (tests).
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Fetcher) {
		f.baseCollector.WithTransport(rt)
	}
}

// New builds a Fetcher.
func New(cfg Config, opts ...Option) (*Fetcher, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid catalog base url %q: %w", cfg.BaseURL, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())

	f := &Fetcher{
		cfg:           cfg,
		logger:        zap.NewNop(),
		baseCollector: c,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// URL builds the request URL for a batch.
func (f *Fetcher) URL(ids crawler.IDRange) string {
	return f.cfg.BaseURL + "?id=" + ids.Param()
}

// Fetch retrieves and parses one batch. Every failure wraps crawler.ErrTransientFetch.
func (f *Fetcher) Fetch(ctx context.Context, ids crawler.IDRange) ([]crawler.Entity, error) {
	target := f.URL(ids)
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, target); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	body, err := f.get(ctx, target)
	if err == nil {
		var entities []crawler.Entity
		entities, err = ParseItems(body)
		if err == nil {
			metrics.ObserveFetch(nil, time.Since(start))
			f.logger.Debug("batch fetched",
				zap.Int64("range_start", int64(ids.Start)),
				zap.Int64("range_end", int64(ids.Last())),
				zap.Int("entities", len(entities)),
				zap.Duration("duration", time.Since(start)),
			)
			return entities, nil
		}
	}
	metrics.ObserveFetch(err, time.Since(start))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return nil, err
}

func (f *Fetcher) get(ctx context.Context, target string) ([]byte, error) {
	var (
		body     []byte
		status   int
		fetchErr error
	)
	collector := f.buildCollector()
	f.configureCollectorHooks(collector, &body, &status, &fetchErr)

	if err := f.runCollector(ctx, collector, target, &fetchErr); err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", crawler.ErrTransientFetch, status)
	}
	return body, nil
}

func (f *Fetcher) buildCollector() *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.AllowURLRevisit = true
	collector.IgnoreRobotsTxt = true
	// Every response reaches OnResponse; get decides what counts as success.
	collector.ParseHTTPErrorResponse = true
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, body *[]byte, status *int, fetchErr *error) {
	hooks.OnResponse(func(r *colly.Response) {
		*status = r.StatusCode
		*body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			*status = r.StatusCode
			*fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, target string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return fmt.Errorf("%w: %w", crawler.ErrTransientFetch, *fetchErr)
		}
		if err != nil {
			var urlErr *url.Error
			if errors.As(err, &urlErr) && urlErr.Timeout() {
				return fmt.Errorf("%w: request timed out: %w", crawler.ErrTransientFetch, err)
			}
			return fmt.Errorf("%w: colly visit failed: %w", crawler.ErrTransientFetch, err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
}
