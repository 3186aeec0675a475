package sitemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvmarrod/sitemap-warmer/internal/fetch"
)

const leafSitemap = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/</loc></url>
  <url><loc> https://example.com/about </loc><lastmod>2024-01-01</lastmod></url>
  <url><loc>https://example.com/search?q=a&amp;page=2</loc></url>
</urlset>`

const indexSitemap = `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://example.com/sitemap-pages.xml</loc></sitemap>
  <sitemap><loc>https://example.com/sitemap-posts.xml</loc></sitemap>
</sitemapindex>`

func parsers() map[string]Parser {
	return map[string]Parser{"scan": ScanParser{}, "xml": XMLParser{}}
}

func TestParse_Leaf(t *testing.T) {
	for name, p := range parsers() {
		t.Run(name, func(t *testing.T) {
			doc, err := p.Parse(leafSitemap)
			require.NoError(t, err)

			assert.False(t, doc.IsIndex)
			assert.Equal(t, []string{
				"https://example.com/",
				"https://example.com/about",
				"https://example.com/search?q=a&page=2",
			}, doc.URLs)
		})
	}
}

func TestParse_Index(t *testing.T) {
	for name, p := range parsers() {
		t.Run(name, func(t *testing.T) {
			doc, err := p.Parse(indexSitemap)
			require.NoError(t, err)

			assert.True(t, doc.IsIndex)
			assert.Equal(t, []string{
				"https://example.com/sitemap-pages.xml",
				"https://example.com/sitemap-posts.xml",
			}, doc.URLs)
		})
	}
}

func TestParse_EmptyIndexIsLeaf(t *testing.T) {
	for name, p := range parsers() {
		t.Run(name, func(t *testing.T) {
			doc, err := p.Parse(`<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"></sitemapindex>`)
			require.NoError(t, err)
			assert.False(t, doc.IsIndex)
			assert.Empty(t, doc.URLs)
		})
	}
}

func TestParse_EmptyBody(t *testing.T) {
	for name, p := range parsers() {
		t.Run(name, func(t *testing.T) {
			for _, body := range []string{"", "   \n\t "} {
				doc, err := p.Parse(body)
				assert.Equal(t, fetch.KindParseEmpty, fetch.KindOf(err))
				assert.Empty(t, doc.URLs)
			}
		})
	}
}

func TestScanParser_Garbage(t *testing.T) {
	doc, err := ScanParser{}.Parse("<html><body>Not a sitemap</body></html>")
	require.NoError(t, err)
	assert.Empty(t, doc.URLs)
	assert.False(t, doc.IsIndex)
}

// The scanner does not understand comments; a commented-out marker still
// classifies the document as an index.
func TestScanParser_SubstringClassification(t *testing.T) {
	body := `<!-- <sitemapindex> --><urlset><url><loc>https://example.com/a</loc></url></urlset>`

	doc, err := ScanParser{}.Parse(body)
	require.NoError(t, err)
	assert.True(t, doc.IsIndex)

	doc, err = XMLParser{}.Parse(body)
	require.NoError(t, err)
	assert.False(t, doc.IsIndex)
}

func TestDecodeEntities(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a&amp;b", "a&b"},
		{"&lt;tag&gt;", "<tag>"},
		{"&quot;q&quot; &apos;s&apos;", `"q" 's'`},
		{"&amp;lt;", "&lt;"},
		{"&amp;amp;", "&amp;"},
		{"no entities", "no entities"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DecodeEntities(tt.in), tt.in)
	}
}

func TestNewParser(t *testing.T) {
	assert.IsType(t, XMLParser{}, NewParser("xml"))
	assert.IsType(t, ScanParser{}, NewParser("scan"))
	assert.IsType(t, ScanParser{}, NewParser(""))
}
