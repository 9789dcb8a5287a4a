// Package extract pulls structured fields and outbound links from fetched
// HTML documents.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/webdex/webdex/internal/crawl"
)

// ErrNotHTML is returned when the content type is not an HTML-like document.
var ErrNotHTML = errors.New("content is not html")

// DefaultContentLimit caps the stored body excerpt.
const DefaultContentLimit = 2000

// Sections whose text never belongs in the search excerpt.
const excludedSections = "script, style, noscript, nav, footer"

var whitespaceRe = regexp.MustCompile(`\s+`)

// Extractor implements crawl.Extractor on top of goquery.
type Extractor struct {
	contentLimit int
}

// New builds an Extractor. A non-positive contentLimit falls back to
// DefaultContentLimit.
func New(contentLimit int) *Extractor {
	if contentLimit <= 0 {
		contentLimit = DefaultContentLimit
	}
	return &Extractor{contentLimit: contentLimit}
}

// Extract parses body and returns the page's structured fields plus its
// outbound links partitioned by hostname. Links resolve against pageURL;
// fragment-only and unparseable hrefs are skipped. Each partition is
// deduplicated within the single extraction pass.
func (e *Extractor) Extract(pageURL, contentType string, body []byte) (crawl.PageExtract, error) {
	if !crawl.IsHTMLContent(contentType) {
		return crawl.PageExtract{}, ErrNotHTML
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return crawl.PageExtract{}, fmt.Errorf("parse page url: %w", err)
	}

	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		reader = bytes.NewReader(body)
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return crawl.PageExtract{}, fmt.Errorf("parse html: %w", err)
	}

	out := crawl.PageExtract{
		Title:       collapse(doc.Find("title").First().Text()),
		Description: strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", "")),
		Heading:     collapse(doc.Find("h1").First().Text()),
		FaviconURL:  faviconURL(doc, base),
	}
	if out.Title == "" {
		out.Title = "No Title"
	}

	// Removing chrome sections before walking anchors also drops nav and
	// footer links, which tend to be boilerplate.
	doc.Find(excludedSections).Remove()
	out.Content = truncate(collapse(doc.Find("body").Text()), e.contentLimit)

	internal := make(map[string]struct{})
	external := make(map[string]string)
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		resolved, err := crawl.ResolveLink(base, href)
		if err != nil {
			return
		}
		clean := crawl.Canonicalize(resolved)
		if resolved.Hostname() == base.Hostname() {
			internal[clean] = struct{}{}
		} else {
			external[clean] = resolved.Hostname()
		}
	})

	for link := range internal {
		out.InternalLinks = append(out.InternalLinks, link)
	}
	for link, host := range external {
		out.ExternalLinks = append(out.ExternalLinks, crawl.Link{URL: link, Hostname: host})
	}
	return out, nil
}

// faviconURL prefers an explicit icon link element and falls back to the
// domain-root default path. An empty string means resolution failed.
func faviconURL(doc *goquery.Document, base *url.URL) string {
	href := doc.Find(`link[rel="icon"], link[rel="shortcut icon"], link[rel="apple-touch-icon"]`).
		First().AttrOr("href", "")
	if href == "" {
		href = "/favicon.ico"
	}
	resolved, err := base.Parse(href)
	if err != nil {
		return ""
	}
	return resolved.String()
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
