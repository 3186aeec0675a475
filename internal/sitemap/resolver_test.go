package sitemap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapFetcher serves bodies from a map; missing URLs fail.
type mapFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	calls  []string
}

func (f *mapFetcher) Fetch(_ context.Context, rawURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rawURL)
	body, ok := f.bodies[rawURL]
	if !ok {
		return "", errors.New("Status Code: 404 for " + rawURL)
	}
	return body, nil
}

type countingRecorder struct {
	resolved, failed int
}

func (c *countingRecorder) IncrementSitemapsResolved() { c.resolved++ }
func (c *countingRecorder) IncrementSitemapsFailed()   { c.failed++ }

func urlset(locs ...string) string {
	var b strings.Builder
	b.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	for _, l := range locs {
		fmt.Fprintf(&b, "<url><loc>%s</loc></url>", l)
	}
	b.WriteString("</urlset>")
	return b.String()
}

func index(locs ...string) string {
	var b strings.Builder
	b.WriteString(`<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	for _, l := range locs {
		fmt.Fprintf(&b, "<sitemap><loc>%s</loc></sitemap>", l)
	}
	b.WriteString("</sitemapindex>")
	return b.String()
}

func newResolver(f Fetcher, rec Recorder) (*Resolver, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return NewResolver(f, ScanParser{}, rec, logger), hook
}

func TestResolve_Leaf(t *testing.T) {
	f := &mapFetcher{bodies: map[string]string{
		"http://h/sitemap.xml": urlset("http://h/a", "http://h/b", "http://h/a"),
	}}
	r, _ := newResolver(f, nil)

	urls := r.Resolve(context.Background(), "http://h/sitemap.xml")
	assert.Equal(t, []string{"http://h/a", "http://h/b", "http://h/a"}, urls, "duplicates are kept")
}

func TestResolve_NestedIndexDepthFirst(t *testing.T) {
	f := &mapFetcher{bodies: map[string]string{
		"http://h/root.xml":   index("http://h/nested.xml", "http://h/leaf3.xml"),
		"http://h/nested.xml": index("http://h/leaf1.xml", "http://h/leaf2.xml"),
		"http://h/leaf1.xml":  urlset("http://h/1a", "http://h/1b"),
		"http://h/leaf2.xml":  urlset("http://h/2a"),
		"http://h/leaf3.xml":  urlset("http://h/3a"),
	}}
	rec := &countingRecorder{}
	r, _ := newResolver(f, rec)

	urls := r.Resolve(context.Background(), "http://h/root.xml")
	assert.Equal(t, []string{"http://h/1a", "http://h/1b", "http://h/2a", "http://h/3a"}, urls)
	assert.Equal(t, []string{
		"http://h/root.xml", "http://h/nested.xml", "http://h/leaf1.xml", "http://h/leaf2.xml", "http://h/leaf3.xml",
	}, f.calls, "children are fetched sequentially in document order")
	assert.Equal(t, 5, rec.resolved)
}

func TestResolve_FailedChildIsIsolated(t *testing.T) {
	f := &mapFetcher{bodies: map[string]string{
		"http://h/root.xml":  index("http://h/leaf1.xml", "http://h/broken.xml", "http://h/leaf2.xml"),
		"http://h/leaf1.xml": urlset("http://h/a"),
		"http://h/leaf2.xml": urlset("http://h/b"),
	}}
	rec := &countingRecorder{}
	r, hook := newResolver(f, rec)

	urls := r.Resolve(context.Background(), "http://h/root.xml")
	assert.Equal(t, []string{"http://h/a", "http://h/b"}, urls)
	assert.Equal(t, 1, rec.failed)

	// the failed sitemap is probed once more without parsing
	probes := 0
	for _, c := range f.calls {
		if c == "http://h/broken.xml" {
			probes++
		}
	}
	assert.Equal(t, 2, probes)

	var msgs []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			msgs = append(msgs, e.Message)
		}
	}
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "Error processing sitemap http://h/broken.xml")
	assert.Contains(t, msgs[1], "Connection test to http://h/broken.xml also failed")
}

func TestResolve_RootFailureYieldsEmpty(t *testing.T) {
	f := &mapFetcher{bodies: map[string]string{}}
	r, _ := newResolver(f, nil)

	urls := r.Resolve(context.Background(), "http://h/sitemap.xml")
	assert.NotNil(t, urls)
	assert.Empty(t, urls)
}

func TestResolve_EmptyBodyIsWarning(t *testing.T) {
	f := &mapFetcher{bodies: map[string]string{"http://h/sitemap.xml": "  "}}
	r, hook := newResolver(f, nil)

	urls := r.Resolve(context.Background(), "http://h/sitemap.xml")
	assert.Empty(t, urls)
	assert.Len(t, f.calls, 1, "an empty body is not probed again")

	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, logrus.ErrorLevel, e.Level, e.Message)
	}
}

func TestResolve_SkipsCyclicChild(t *testing.T) {
	f := &mapFetcher{bodies: map[string]string{
		"http://h/a.xml":    index("http://h/b.xml"),
		"http://h/b.xml":    index("http://h/a.xml", "http://h/leaf.xml"),
		"http://h/leaf.xml": urlset("http://h/page"),
	}}
	r, _ := newResolver(f, nil)

	urls := r.Resolve(context.Background(), "http://h/a.xml")
	assert.Equal(t, []string{"http://h/page"}, urls)
}

func TestResolve_RepeatedSiblingsAreNotCycles(t *testing.T) {
	f := &mapFetcher{bodies: map[string]string{
		"http://h/root.xml": index("http://h/leaf.xml", "http://h/leaf.xml"),
		"http://h/leaf.xml": urlset("http://h/page"),
	}}
	r, _ := newResolver(f, nil)

	urls := r.Resolve(context.Background(), "http://h/root.xml")
	assert.Equal(t, []string{"http://h/page", "http://h/page"}, urls)
}

func TestResolve_Cancelled(t *testing.T) {
	f := &mapFetcher{bodies: map[string]string{
		"http://h/root.xml": index("http://h/leaf.xml"),
		"http://h/leaf.xml": urlset("http://h/page"),
	}}
	r, _ := newResolver(f, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	urls := r.Resolve(ctx, "http://h/root.xml")
	assert.Empty(t, urls)
	assert.Equal(t, []string{"http://h/root.xml"}, f.calls)
}
