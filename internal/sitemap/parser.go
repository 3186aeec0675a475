// Package sitemap turns a sitemap or sitemap index into a flat list of page URLs.
package sitemap

import (
	"regexp"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/alvmarrod/sitemap-warmer/internal/config"
	"github.com/alvmarrod/sitemap-warmer/internal/fetch"
)

// Document is one parsed sitemap body. When IsIndex is set URLs are child
// sitemaps, otherwise they are pages.
type Document struct {
	IsIndex bool
	URLs    []string
}

// Parser extracts <loc> values from a sitemap body.
type Parser interface {
	Parse(body string) (Document, error)
}

// ErrEmpty is returned for a blank body.
var ErrEmpty = &fetch.Error{Kind: fetch.KindParseEmpty}

var (
	locPattern = regexp.MustCompile(`<loc>(.*?)</loc>`)

	entityReplacer = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
)

// ScanParser matches <loc>...</loc> pairs textually without checking that
// the document is well-formed. A body is an index when it contains
// "<sitemapindex" and yields at least one <loc>.
type ScanParser struct{}

func (ScanParser) Parse(body string) (Document, error) {
	if strings.TrimSpace(body) == "" {
		return Document{}, ErrEmpty
	}

	matches := locPattern.FindAllStringSubmatch(body, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		urls = append(urls, DecodeEntities(strings.TrimSpace(m[1])))
	}

	return Document{
		IsIndex: strings.Contains(body, "<sitemapindex") && len(urls) > 0,
		URLs:    urls,
	}, nil
}

// DecodeEntities replaces the five predefined XML entities in a single pass,
// so "&amp;lt;" becomes "&lt;" and not "<".
func DecodeEntities(s string) string {
	return entityReplacer.Replace(s)
}

// XMLParser parses the body as XML. Namespaces are ignored; the document is
// an index when its root element is <sitemapindex> and it has a <loc>.
type XMLParser struct{}

func (XMLParser) Parse(body string) (Document, error) {
	if strings.TrimSpace(body) == "" {
		return Document{}, ErrEmpty
	}

	doc, err := xmlquery.Parse(strings.NewReader(body))
	if err != nil {
		return Document{}, &fetch.Error{Kind: fetch.KindParseEmpty, Err: err}
	}

	nodes := xmlquery.Find(doc, "//*[local-name()='loc']")
	urls := make([]string, 0, len(nodes))
	for _, n := range nodes {
		urls = append(urls, strings.TrimSpace(n.InnerText()))
	}

	root := xmlquery.FindOne(doc, "/*[local-name()='sitemapindex']")
	return Document{
		IsIndex: root != nil && len(urls) > 0,
		URLs:    urls,
	}, nil
}

// NewParser returns the parser registered under name, defaulting to ScanParser.
func NewParser(name string) Parser {
	if name == config.ParserXML {
		return XMLParser{}
	}
	return ScanParser{}
}
