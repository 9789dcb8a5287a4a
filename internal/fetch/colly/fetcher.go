// Package collyfetch implements crawl.Fetcher using gocolly.
package collyfetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/webdex/webdex/internal/crawl"
)

// Config controls collector behavior.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int
	IgnoreRobots bool
}

// Fetcher performs bounded single-page GETs through a Colly collector.
// Statuses below 500 pass through in the response; server errors and
// network failures are returned as errors.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 5 * 1024 * 1024
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET.
func (f *Fetcher) Fetch(ctx context.Context, url string) (crawl.FetchResponse, error) {
	var (
		result   crawl.FetchResponse
		fetchErr error
		got      bool
	)
	start := time.Now()

	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = f.cfg.IgnoreRobots
	collector.ParseHTTPErrorResponse = true
	collector.MaxBodySize = f.cfg.MaxBodyBytes
	collector.SetRequestTimeout(f.cfg.Timeout)

	capture := func(r *colly.Response) {
		result = crawl.FetchResponse{
			URL:         r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Body:        append([]byte(nil), r.Body...),
			Duration:    time.Since(start),
		}
		got = true
	}

	collector.OnResponse(func(r *colly.Response) {
		capture(r)
	})
	collector.OnError(func(r *colly.Response, err error) {
		// Client and redirect class statuses pass through so the worker
		// can record them; 5xx and transport failures stay errors.
		if r != nil && r.StatusCode > 0 && r.StatusCode < 500 {
			capture(r)
			return
		}
		fetchErr = err
	})

	visitErr := f.runCollector(ctx, collector, url)
	if ctx.Err() != nil {
		return crawl.FetchResponse{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
	}
	if got {
		if result.StatusCode >= 500 {
			return crawl.FetchResponse{}, fmt.Errorf("fetch %s: server status %d", url, result.StatusCode)
		}
		return result, nil
	}
	if fetchErr != nil {
		return crawl.FetchResponse{}, fmt.Errorf("fetch %s: %w", url, fetchErr)
	}
	if visitErr != nil {
		return crawl.FetchResponse{}, visitErr
	}
	return crawl.FetchResponse{}, fmt.Errorf("fetch %s: no response", url)
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit %s: %w", url, err)
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
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
