// Package crawler runs a cache-priming crawl: connectivity check, sitemap
// resolution, then page fetches in paced, fixed-size concurrent batches.
package crawler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/alvmarrod/sitemap-warmer/internal/config"
	"github.com/alvmarrod/sitemap-warmer/internal/fetch"
	"github.com/alvmarrod/sitemap-warmer/internal/metrics"
)

const banner = "========================================"

// Fetcher retrieves a URL body
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Resolver expands a sitemap URL into page URLs
type Resolver interface {
	Resolve(ctx context.Context, sitemapURL string) []string
}

// Crawler orchestrates one crawl run
type Crawler struct {
	cfg      *config.Config
	fetcher  Fetcher
	resolver Resolver
	tracker  *metrics.Tracker
	limiter  *rate.Limiter
	log      logrus.FieldLogger
	sleep    func(ctx context.Context, d time.Duration) error

	stateMu sync.RWMutex
	state   State
}

// NewCrawler creates a new crawler instance
func NewCrawler(cfg *config.Config, fetcher Fetcher, resolver Resolver, tracker *metrics.Tracker, log logrus.FieldLogger) *Crawler {
	c := &Crawler{
		cfg:      cfg,
		fetcher:  fetcher,
		resolver: resolver,
		tracker:  tracker,
		log:      log,
		sleep:    fetch.Sleep,
		state:    StateIdle,
	}

	if cfg.MaxRequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.MaxRequestsPerSecond), cfg.ConcurrentRequests)
	}

	return c
}

// State returns the current run state
func (c *Crawler) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

func (c *Crawler) setState(s State) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.log.Debugf("State %s -> %s", c.state, s)
	c.state = s
}

// Run performs the crawl and returns the final tally. Page failures only
// show up in the tally; the returned error is non-nil only when ctx is
// cancelled.
func (c *Crawler) Run(ctx context.Context) (metrics.Tally, error) {
	sitemapURL := c.cfg.FullSitemapURL()

	c.log.Info(banner)
	c.log.Infof("Starting sitemap crawl for: %s", sitemapURL)
	c.log.Info(banner)

	c.setState(StateConnectivityCheck)
	if !c.testConnection(ctx) {
		if err := ctx.Err(); err != nil {
			return c.tracker.Tally(), err
		}
		c.log.Warn("WARNING: Initial connectivity test failed. Will try to continue anyway.")
	}

	c.setState(StateResolving)
	urls := c.resolver.Resolve(ctx, sitemapURL)
	if err := ctx.Err(); err != nil {
		return c.tracker.Tally(), err
	}

	if c.cfg.Dedupe {
		before := len(urls)
		urls = Dedupe(urls)
		if removed := before - len(urls); removed > 0 {
			c.log.Infof("Removed %d duplicate URLs", removed)
		}
	}

	if len(urls) == 0 {
		c.log.Warn("No URLs found to crawl. Sitemap may be empty or inaccessible.")
		c.setState(StateDone)
		return c.tracker.Tally(), nil
	}

	c.log.Infof("Found total of %d URLs to crawl", len(urls))

	c.setState(StateCrawling)
	batches := Batches(urls, c.cfg.ConcurrentRequests)
	offset := 0
	for i, batch := range batches {
		c.log.Infof("Processing batch %d/%d (%d URLs)", i+1, len(batches), len(batch))

		success, failed := c.crawlBatch(ctx, batch, offset, len(urls))
		c.tracker.RecordBatch(success, failed)
		offset += len(batch)

		if err := ctx.Err(); err != nil {
			return c.tracker.Tally(), err
		}

		// Pace the origin between batches
		if i < len(batches)-1 {
			if err := c.sleep(ctx, c.cfg.BatchDelay()); err != nil {
				return c.tracker.Tally(), err
			}
		}
	}

	c.setState(StateDone)

	tally := c.tracker.Tally()
	c.log.Info(banner)
	c.log.Infof("Crawl completed. Success: %d, Failed: %d", tally.Success, tally.Failed)
	c.log.Info(banner)
	c.log.Info(c.tracker.LogProgress())

	return tally, nil
}

// testConnection fetches the bare base URL. The result is diagnostic only.
func (c *Crawler) testConnection(ctx context.Context) bool {
	c.log.Infof("Testing connectivity to: %s", c.cfg.BaseURL)
	if _, err := c.fetcher.Fetch(ctx, c.cfg.BaseURL); err != nil {
		c.log.Errorf("Initial connectivity test failed: %v", err)
		return false
	}
	c.log.Info("Base URL connectivity test successful")
	return true
}

// crawlBatch fetches every URL of the batch concurrently and returns once
// all of them have settled.
func (c *Crawler) crawlBatch(ctx context.Context, batch []string, offset, total int) (success, failed int) {
	results := make([]bool, len(batch))

	var wg sync.WaitGroup
	for i, pageURL := range batch {
		wg.Add(1)
		go func(i int, pageURL string) {
			defer wg.Done()
			results[i] = c.crawlPage(ctx, pageURL, offset+i+1, total)
		}(i, pageURL)
	}
	wg.Wait()

	for _, ok := range results {
		if ok {
			success++
		} else {
			failed++
		}
	}
	return success, failed
}

func (c *Crawler) crawlPage(ctx context.Context, pageURL string, n, total int) bool {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.log.Errorf("✗ Failed to fetch %s: %v", pageURL, err)
			return false
		}
	}

	c.log.Infof("[%d/%d] Crawling: %s", n, total, pageURL)

	start := time.Now()
	_, err := c.fetcher.Fetch(ctx, pageURL)
	c.tracker.RecordFetchTime(time.Since(start))

	if err != nil {
		c.log.Errorf("✗ Failed to fetch %s: %v", pageURL, err)
		return false
	}

	c.log.Infof("✓ Success: %s", pageURL)
	return true
}
