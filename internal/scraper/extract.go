package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
)

const (
	maxBodySize    = 5 * 1024 * 1024
	minTextLength  = 100
	maxArticleText = 15000
)

// Article is the readable part of a news page.
type Article struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Byline   string `json:"byline,omitempty"`
	Markdown string `json:"markdown"`
}

// Extract fetches a page and returns its main content as Markdown.
func (s *Scraper) Extract(ctx context.Context, pageURL string) (Article, error) {
	if err := ValidateURL(pageURL); err != nil {
		return Article{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Article{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "es-CO,es;q=0.9,en;q=0.5")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Article{}, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Article{}, fmt.Errorf("HTTP %d for %s", resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Article{}, fmt.Errorf("read body: %w", err)
	}

	return s.ExtractHTML(body, pageURL)
}

// ExtractHTML runs readability over an already fetched page.
func (s *Scraper) ExtractHTML(body []byte, pageURL string) (Article, error) {
	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return Article{}, fmt.Errorf("readability: %w", err)
	}

	text := ""
	if article.Content != "" {
		if converted, err := s.converter.ConvertString(article.Content); err == nil {
			text = converted
		}
	}
	if text == "" {
		text = article.TextContent
	}
	text = normalizeText(text)

	if n := utf8.RuneCountInString(text); n < minTextLength {
		return Article{}, fmt.Errorf("extracted content too short (%d chars) from %s", n, pageURL)
	}
	if utf8.RuneCountInString(text) > maxArticleText {
		text = string([]rune(text)[:maxArticleText]) + "\n... [truncated]"
	}

	return Article{
		URL:      pageURL,
		Title:    cleanText(article.Title),
		Byline:   cleanText(article.Byline),
		Markdown: text,
	}, nil
}

// AppendReference adds an article's text to an analyst's topic context,
// cut to limit runes.
func AppendReference(topicContext string, a Article, limit int) string {
	text := a.Markdown
	if limit > 0 && utf8.RuneCountInString(text) > limit {
		text = string([]rune(text)[:limit]) + "..."
	}
	block := fmt.Sprintf("ARTÍCULO DE REFERENCIA (%s):\n%s", a.URL, text)
	if strings.TrimSpace(topicContext) == "" {
		return block
	}
	return topicContext + "\n\n" + block
}

// ToMarkdown converts an HTML fragment such as a feed description.
func (s *Scraper) ToMarkdown(html string) string {
	if !strings.ContainsAny(html, "<&") {
		return strings.TrimSpace(html)
	}
	out, err := s.converter.ConvertString(html)
	if err != nil {
		return cleanText(html)
	}
	return normalizeText(out)
}

var (
	multiSpace   = regexp.MustCompile(`[ \t]+`)
	multiNewline = regexp.MustCompile(`\n{3,}`)
)

func normalizeText(s string) string {
	s = strings.TrimSpace(s)
	s = multiSpace.ReplaceAllString(s, " ")
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return s
}
