// Package fetch performs single logical GETs with redirect following,
// a per-request timeout and a fixed retry budget.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// Options are the fixed tunables of a Client.
type Options struct {
	BaseURL      string
	UserAgent    string
	MaxRedirects int
	RetryCount   int
	RetryDelay   time.Duration
}

// Client fetches page and sitemap bodies. It keeps no per-call state; the
// redirect depth travels down the call chain.
type Client struct {
	opts      Options
	header    http.Header
	transport Transport
	log       logrus.FieldLogger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client that sends every request through transport
func NewClient(opts Options, transport Transport, log logrus.FieldLogger) *Client {
	header := http.Header{}
	header.Set("User-Agent", opts.UserAgent)
	header.Set("Accept", "text/html,application/xhtml+xml,application/xml")
	header.Set("Accept-Encoding", "gzip, deflate")

	return &Client{
		opts:      opts,
		header:    header,
		transport: transport,
		log:       log,
		sleep:     Sleep,
	}
}

// Fetch returns the body of the first 200 response reached from rawURL.
// On failure the error is the *Error of the last attempt.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	return c.fetch(ctx, rawURL, 0)
}

func (c *Client) fetch(ctx context.Context, rawURL string, redirectDepth int) (string, error) {
	if redirectDepth > c.opts.MaxRedirects {
		return "", &Error{
			Kind: KindTooManyRedirects,
			URL:  rawURL,
			Err:  fmt.Errorf("more than %d redirects", c.opts.MaxRedirects),
		}
	}

	target, err := ResolveURL(c.opts.BaseURL, rawURL)
	if err != nil {
		c.log.Errorf("Invalid URL: %s", rawURL)
		return "", err
	}
	if u, perr := url.Parse(rawURL); perr == nil && u.Scheme == "" {
		c.log.Infof("Converted relative URL to absolute: %s", target)
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.RetryCount; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.opts.RetryDelay); err != nil {
				return "", err
			}
		}

		body, err := c.attempt(ctx, target, redirectDepth, attempt)
		if err == nil {
			return body, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		lastErr = err
		// The final error is returned to the caller, which logs it
		if attempt < c.opts.RetryCount {
			c.log.Warnf("Error fetching %s (attempt %d/%d): %v", target, attempt+1, c.opts.RetryCount+1, err)
		}
	}

	return "", lastErr
}

func (c *Client) attempt(ctx context.Context, target string, redirectDepth, retry int) (string, error) {
	if retry > 0 {
		c.log.Infof("Fetching: %s (retry %d/%d)", target, retry, c.opts.RetryCount)
	} else {
		c.log.Infof("Fetching: %s", target)
	}

	resp, err := c.transport.Get(ctx, target, c.header)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", classify(target, err)
	}

	if resp.StatusCode >= 300 && resp.StatusCode < 400 && resp.Location != "" {
		c.log.Infof("Following redirect (%d) from %s to: %s", resp.StatusCode, target, resp.Location)
		return c.fetch(ctx, resp.Location, redirectDepth+1)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &Error{Kind: KindHTTPStatus, URL: target, StatusCode: resp.StatusCode}
	}

	c.log.Infof("Successfully fetched: %s (%d bytes)", target, len(resp.Body))
	return string(resp.Body), nil
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
