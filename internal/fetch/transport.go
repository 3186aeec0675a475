package fetch

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

const responseKey = "fetch.response"

var errNoResponse = errors.New("no response received")

// Response is the outcome of a single HTTP round-trip. Redirects are
// reported, not followed.
type Response struct {
	StatusCode int
	Location   string
	Body       []byte
}

// Transport performs one GET request without following redirects.
type Transport interface {
	Get(ctx context.Context, rawURL string, header http.Header) (*Response, error)
}

// CollyTransport issues synchronous requests through a colly collector.
// It is safe for concurrent use.
type CollyTransport struct {
	collector *colly.Collector
}

// NewCollyTransport configures a collector that revisits URLs freely, hands
// back error and redirect responses instead of failing on them, keeps no
// cookies and reads bodies without a size cap.
func NewCollyTransport(timeout time.Duration, userAgent string) *CollyTransport {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(0),
	)
	c.DisableCookies()
	c.SetRequestTimeout(timeout)
	c.SetRedirectHandler(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	})

	// Each request carries its own colly context, so concurrent callers
	// never see each other's responses.
	c.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(responseKey, r)
	})

	return &CollyTransport{collector: c}
}

func (t *CollyTransport) Get(ctx context.Context, rawURL string, header http.Header) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reqCtx := colly.NewContext()
	if err := t.collector.Request(http.MethodGet, rawURL, nil, reqCtx, header.Clone()); err != nil {
		return nil, err
	}

	r, ok := reqCtx.GetAny(responseKey).(*colly.Response)
	if !ok || r == nil {
		return nil, errNoResponse
	}

	resp := &Response{StatusCode: r.StatusCode, Body: r.Body}
	if r.Headers != nil {
		resp.Location = r.Headers.Get("Location")
		// colly already handles gzip
		if strings.EqualFold(strings.TrimSpace(r.Headers.Get("Content-Encoding")), "deflate") {
			body, err := inflate(r.Body)
			if err != nil {
				return nil, err
			}
			resp.Body = body
		}
	}

	return resp, nil
}

// inflate accepts both zlib-wrapped and raw deflate bodies.
func inflate(body []byte) ([]byte, error) {
	if zr, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
		defer zr.Close()
		if out, err := io.ReadAll(zr); err == nil {
			return out, nil
		}
	}

	fr := flate.NewReader(bytes.NewReader(body))
	defer fr.Close()
	return io.ReadAll(fr)
}
