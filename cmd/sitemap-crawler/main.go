package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/alvmarrod/sitemap-warmer/internal/config"
	"github.com/alvmarrod/sitemap-warmer/internal/crawler"
	"github.com/alvmarrod/sitemap-warmer/internal/fetch"
	"github.com/alvmarrod/sitemap-warmer/internal/logging"
	"github.com/alvmarrod/sitemap-warmer/internal/metrics"
	"github.com/alvmarrod/sitemap-warmer/internal/sitemap"
	"github.com/alvmarrod/sitemap-warmer/internal/version"
)

func main() {
	configPath := flag.String("config", "", "Optional JSON or TOML config file")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [baseUrl] [sitemapPath]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example: %s https://example.com /sitemap.xml\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	os.Exit(run(*configPath, *logLevel, flag.Args()))
}

func run(configPath, logLevel string, args []string) int {
	// Load configuration
	cfg, err := config.Load(configPath, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Configure logging
	log, err := logging.New(os.Stdout, os.Stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure logging: %v\n", err)
		return 1
	}

	log.Debugf("Sitemap crawler v%s: base=%s, sitemap=%s, concurrency=%d, parser=%s",
		version.Version, cfg.BaseURL, cfg.SitemapPath, cfg.ConcurrentRequests, cfg.Parser)

	// Cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := build(cfg, log)

	if _, err := c.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Error("Crawl interrupted")
		} else {
			log.Errorf("Fatal error crawling sitemap: %v", err)
		}
		log.Error("Crawl process terminated abnormally")
		return 1
	}

	return 0
}

// build wires the fetch client, resolver and crawler for one run.
func build(cfg *config.Config, log *logrus.Logger) *crawler.Crawler {
	tracker := metrics.NewTracker()

	transport := fetch.NewCollyTransport(cfg.RequestTimeout(), cfg.UserAgent)
	client := fetch.NewClient(fetch.Options{
		BaseURL:      cfg.BaseURL,
		UserAgent:    cfg.UserAgent,
		MaxRedirects: cfg.MaxRedirects,
		RetryCount:   cfg.RetryCount,
		RetryDelay:   cfg.RetryDelay(),
	}, transport, log)

	resolver := sitemap.NewResolver(client, sitemap.NewParser(cfg.Parser), tracker, log)

	return crawler.NewCrawler(cfg, client, resolver, tracker, log)
}
