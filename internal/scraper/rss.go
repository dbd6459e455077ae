package scraper

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/gocolly/colly/v2"
)

// DiscoverFeed checks a web page for RSS/Atom feed <link> tags.
// Returns the feed URL if found, or empty string if none discovered.
func (s *Scraper) DiscoverFeed(ctx context.Context, pageURL string) string {
	c := colly.NewCollector(
		colly.UserAgent(s.userAgent),
		colly.MaxDepth(0),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.requestTimeout)

	var feedURL string
	var mu sync.Mutex

	c.OnHTML(`link[rel="alternate"]`, func(e *colly.HTMLElement) {
		mu.Lock()
		defer mu.Unlock()
		if feedURL != "" {
			return
		}
		typ := strings.ToLower(e.Attr("type"))
		if typ == "application/rss+xml" || typ == "application/atom+xml" {
			if href := e.Attr("href"); href != "" {
				feedURL = resolveURL(pageURL, href)
			}
		}
	})

	c.Visit(pageURL)
	c.Wait()

	return feedURL
}

// resolveURL resolves a potentially relative href against a base URL.
func resolveURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		if b, err := url.Parse(base); err == nil && b.Scheme != "" {
			return b.Scheme + ":" + href
		}
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}

	ref, err := url.Parse(href)
	if err != nil {
		return href
	}

	return baseURL.ResolveReference(ref).String()
}
