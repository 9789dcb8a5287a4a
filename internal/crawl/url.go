package crawl

import (
	"fmt"
	"net/url"
	"strings"
)

// ResolveLink resolves an anchor href against the page it appeared on and
// returns the canonical absolute form. Fragment-only hrefs and hrefs that
// fail to parse are rejected. Only http and https links are followed.
func ResolveLink(base *url.URL, href string) (*url.URL, error) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil, fmt.Errorf("fragment or empty href")
	}
	u, err := base.Parse(href)
	if err != nil {
		return nil, fmt.Errorf("parse href: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("missing hostname")
	}
	return u, nil
}

// Canonicalize strips the fragment and a single trailing slash so duplicate
// discoveries of the same page compare equal.
func Canonicalize(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	return strings.TrimSuffix(c.String(), "/")
}

// IsHTMLContent reports whether a Content-Type header names an HTML-like
// text document.
func IsHTMLContent(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}
