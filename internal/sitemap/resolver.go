package sitemap

import (
	"context"
	"slices"

	"github.com/sirupsen/logrus"
)

// Fetcher returns the body of a URL. *fetch.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Recorder is notified once per sitemap document processed.
type Recorder interface {
	IncrementSitemapsResolved()
	IncrementSitemapsFailed()
}

// Resolver flattens a sitemap tree into page URLs. It holds no state between calls.
type Resolver struct {
	fetcher  Fetcher
	parser   Parser
	recorder Recorder
	log      logrus.FieldLogger
}

// NewResolver creates a resolver. recorder may be nil.
func NewResolver(fetcher Fetcher, parser Parser, recorder Recorder, log logrus.FieldLogger) *Resolver {
	return &Resolver{
		fetcher:  fetcher,
		parser:   parser,
		recorder: recorder,
		log:      log,
	}
}

// Resolve returns the page URLs reachable from sitemapURL in depth-first,
// document order. Failures are logged and contribute no URLs; Resolve never
// fails. Callers should check ctx.Err() to tell a cancelled run from an
// empty sitemap.
func (r *Resolver) Resolve(ctx context.Context, sitemapURL string) []string {
	return r.resolve(ctx, sitemapURL, nil)
}

// ancestors is the chain of index URLs above sitemapURL in this traversal.
func (r *Resolver) resolve(ctx context.Context, sitemapURL string, ancestors []string) []string {
	r.log.Infof("Processing sitemap: %s", sitemapURL)

	body, err := r.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		if ctx.Err() != nil {
			return []string{}
		}
		r.log.Errorf("Error processing sitemap %s: %v", sitemapURL, err)
		r.recordFailed()
		r.probe(ctx, sitemapURL)
		return []string{}
	}

	doc, err := r.parser.Parse(body)
	if err != nil {
		r.log.Warnf("Warning: %v (%s)", err, sitemapURL)
		r.recordFailed()
		return []string{}
	}
	r.recordResolved()

	if !doc.IsIndex {
		r.log.Infof("Found %d URLs in sitemap", len(doc.URLs))
		return doc.URLs
	}

	r.log.Infof("Found sitemap index with %d sub-sitemaps", len(doc.URLs))

	chain := append(slices.Clip(ancestors), sitemapURL)
	all := []string{}
	for _, child := range doc.URLs {
		if ctx.Err() != nil {
			break
		}
		if slices.Contains(chain, child) {
			r.log.Warnf("Skipping sub-sitemap %s: it is an ancestor of itself", child)
			continue
		}
		all = append(all, r.resolve(ctx, child, chain)...)
	}
	return all
}

// probe fetches the sitemap once more so the log tells an unreachable
// sitemap apart from one that loads but fails to resolve. Its outcome is
// only logged.
func (r *Resolver) probe(ctx context.Context, sitemapURL string) {
	r.log.Infof("Testing connection to %s without parsing...", sitemapURL)
	if _, err := r.fetcher.Fetch(ctx, sitemapURL); err != nil {
		r.log.Errorf("Connection test to %s also failed: %v", sitemapURL, err)
		return
	}
	r.log.Infof("Connection to %s successful, but XML parsing failed", sitemapURL)
}

func (r *Resolver) recordResolved() {
	if r.recorder != nil {
		r.recorder.IncrementSitemapsResolved()
	}
}

func (r *Resolver) recordFailed() {
	if r.recorder != nil {
		r.recorder.IncrementSitemapsFailed()
	}
}
