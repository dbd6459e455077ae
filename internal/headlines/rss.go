package headlines

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"
	"golang.org/x/text/cases"

	"github.com/ondaradio/onda/internal/config"
	"github.com/ondaradio/onda/internal/models"
)

const maxDescriptionRunes = 400

// PageTools is the subset of the scraper the feed source needs.
type PageTools interface {
	DiscoverFeed(ctx context.Context, pageURL string) string
	ToMarkdown(html string) string
}

// Feeds reads the configured RSS/Atom feeds.
type Feeds struct {
	feeds  []config.FeedConfig
	parser *gofeed.Parser
	tools  PageTools
}

func NewFeeds(feeds []config.FeedConfig, tools PageTools, httpClient *http.Client) *Feeds {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	p := gofeed.NewParser()
	p.Client = httpClient
	p.UserAgent = "OndaRadio/1.0 (+https://ondaradio.co)"
	return &Feeds{
		feeds:  feeds,
		parser: p,
		tools:  tools,
	}
}

func (f *Feeds) Name() string { return "rss" }

// Fetch reads every feed matching the query category. Individual feed
// failures are logged; an error is returned only when every feed failed.
func (f *Feeds) Fetch(ctx context.Context, q Query) ([]models.Headline, error) {
	var out []models.Headline
	var errs []error
	tried := 0
	fold := cases.Fold()

	for _, fc := range f.feeds {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		if q.Category != "" && q.Category != "general" && !strings.EqualFold(fc.Category, q.Category) {
			continue
		}
		tried++

		items, err := f.fetchFeed(ctx, fc)
		if err != nil {
			slog.Warn("Feed fetch failed", "feed", fc.Name, "url", fc.URL, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", fc.Name, err))
			continue
		}
		for _, h := range items {
			if matches(fold, h, q.Text) {
				out = append(out, h)
			}
		}
	}

	if tried > 0 && len(errs) == tried {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (f *Feeds) fetchFeed(ctx context.Context, fc config.FeedConfig) ([]models.Headline, error) {
	feed, err := f.parser.ParseURLWithContext(fc.URL, ctx)
	if errors.Is(err, gofeed.ErrFeedTypeNotDetected) && f.tools != nil {
		// Configured URL is a site page; look for its advertised feed.
		discovered := f.tools.DiscoverFeed(ctx, fc.URL)
		if discovered == "" {
			return nil, fmt.Errorf("no feed found at %s", fc.URL)
		}
		slog.Debug("Discovered feed", "page", fc.URL, "feed", discovered)
		feed, err = f.parser.ParseURLWithContext(discovered, ctx)
	}
	if err != nil {
		return nil, err
	}

	source := fc.Name
	if source == "" {
		source = feed.Title
	}

	items := make([]models.Headline, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || item.Link == "" || strings.TrimSpace(item.Title) == "" {
			continue
		}
		h := models.Headline{
			Title:       strings.TrimSpace(item.Title),
			Description: f.describe(item),
			URL:         item.Link,
			ImageURL:    itemImage(item),
			Source:      source,
			Category:    fc.Category,
		}
		if item.PublishedParsed != nil {
			t := item.PublishedParsed.UTC()
			h.PublishedAt = &t
		}
		items = append(items, h)
	}
	return items, nil
}

func (f *Feeds) describe(item *gofeed.Item) string {
	raw := item.Description
	if raw == "" {
		raw = item.Content
	}
	if raw == "" {
		return ""
	}
	text := raw
	if f.tools != nil {
		text = f.tools.ToMarkdown(raw)
	}
	if utf8.RuneCountInString(text) > maxDescriptionRunes {
		text = strings.TrimSpace(string([]rune(text)[:maxDescriptionRunes])) + "..."
	}
	return text
}

func matches(fold cases.Caser, h models.Headline, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return true
	}
	needle := fold.String(text)
	return strings.Contains(fold.String(h.Title), needle) ||
		strings.Contains(fold.String(h.Description), needle)
}

func itemImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}
