package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/gocolly/colly/v2"
)

const userAgent = "OndaRadio/1.0 (Newsroom research; +https://ondaradio.co)"

// Scraper fetches result pages for imagery and readable article text.
type Scraper struct {
	userAgent      string
	requestTimeout time.Duration
	parallelLimit  int
	httpClient     *http.Client
	converter      *md.Converter
}

// New creates a new Scraper.
func New() *Scraper {
	return &Scraper{
		userAgent:      userAgent,
		requestTimeout: 15 * time.Second,
		parallelLimit:  3,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		converter:      md.NewConverter("", true, nil),
	}
}

// PageImage returns the og:image (or twitter:image) declared by one page.
func (s *Scraper) PageImage(ctx context.Context, pageURL string) (string, error) {
	c := colly.NewCollector(
		colly.UserAgent(s.userAgent),
		colly.MaxDepth(1),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.requestTimeout)

	var ogImage, twitterImage string
	var mu sync.Mutex

	c.OnHTML(`meta[property="og:image"], meta[property="og:image:url"]`, func(e *colly.HTMLElement) {
		mu.Lock()
		defer mu.Unlock()
		if ogImage == "" {
			ogImage = strings.TrimSpace(e.Attr("content"))
		}
	})
	c.OnHTML(`meta[name="twitter:image"]`, func(e *colly.HTMLElement) {
		mu.Lock()
		defer mu.Unlock()
		if twitterImage == "" {
			twitterImage = strings.TrimSpace(e.Attr("content"))
		}
	})

	var scrapeErr error
	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("scrape error for %s: %w (status: %d)", pageURL, err, r.StatusCode)
	})

	if err := c.Visit(pageURL); err != nil {
		return "", fmt.Errorf("failed to visit %s: %w", pageURL, err)
	}
	c.Wait()

	if scrapeErr != nil {
		return "", scrapeErr
	}

	img := ogImage
	if img == "" {
		img = twitterImage
	}
	if img == "" {
		return "", fmt.Errorf("no preview image declared by %s", pageURL)
	}
	return resolveURL(pageURL, img), nil
}

// FindImages scans pages concurrently and returns up to limit distinct
// images, in page order. Pages that fail are skipped.
func (s *Scraper) FindImages(ctx context.Context, pageURLs []string, limit int) []string {
	found := make([]string, len(pageURLs))

	sem := make(chan struct{}, s.parallelLimit)
	var wg sync.WaitGroup

	for i, pageURL := range pageURLs {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(i int, pageURL string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.Warn("Panic while scanning page for images", "url", pageURL, "panic", r)
				}
			}()

			sem <- struct{}{}
			defer func() { <-sem }()

			img, err := s.PageImage(ctx, pageURL)
			if err != nil {
				return
			}
			found[i] = img
		}(i, pageURL)
	}

	wg.Wait()
	return collect(found, limit)
}

func collect(found []string, limit int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, img := range found {
		if img == "" || seen[img] {
			continue
		}
		seen[img] = true
		out = append(out, img)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func cleanText(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
