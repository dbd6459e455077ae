package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ondaradio/onda/internal/config"
)

var (
	// ErrMissingKey means no search credential is configured.
	ErrMissingKey = errors.New("search provider key not configured")

	// ErrProviderUnreachable covers transport failures and non-2xx answers.
	ErrProviderUnreachable = errors.New("search provider unreachable")
)

const querySuffix = "detalles técnicos cifras declaraciones oficiales fecha exacta"

// Item is one search hit.
type Item struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// Image is the canonical image reference. The provider sends either a bare
// URL string or an object with a url field; both decode into Image.
type Image struct {
	URL string `json:"url"`
}

func (img *Image) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		img.URL = s
		return nil
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode image reference: %w", err)
	}
	img.URL = obj.URL
	return nil
}

// Grounding is everything the research stage needs from one search.
type Grounding struct {
	Items            []Item
	Block            string
	Images           []Image
	ProxiedImageURLs []string
	SourceImageURLs  []string
}

// ImageFinder discovers images on result pages when the provider returned none.
type ImageFinder interface {
	FindImages(ctx context.Context, pageURLs []string, limit int) []string
}

// Client queries the Tavily search API.
type Client struct {
	httpClient    *http.Client
	apiKey        string
	endpoint      string
	maxResults    int
	maxBlockChars int
	imageProxy    string
	finder        ImageFinder
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithImageFinder enables og:image discovery on result pages.
func WithImageFinder(f ImageFinder) Option {
	return func(c *Client) { c.finder = f }
}

// New creates a search client with a 30-second timeout.
func New(cfg config.EvidenceConfig, opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		apiKey:        strings.TrimSpace(cfg.APIKey),
		endpoint:      cfg.Endpoint,
		maxResults:    cfg.MaxResults,
		maxBlockChars: cfg.MaxBlockChars,
		imageProxy:    cfg.ImageProxy,
	}
	if c.endpoint == "" {
		c.endpoint = "https://api.tavily.com/search"
	}
	if c.maxResults <= 0 {
		c.maxResults = 10
	}
	if c.maxBlockChars <= 0 {
		c.maxBlockChars = 12000
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	IncludeImages bool   `json:"include_images"`
	IncludeAnswer bool   `json:"include_answer"`
	MaxResults    int    `json:"max_results"`
}

type searchResponse struct {
	Answer  string  `json:"answer"`
	Results []Item  `json:"results"`
	Images  []Image `json:"images"`
}

// Query builds the search query biased toward verifiable facts.
func Query(title, context string) string {
	return strings.TrimSpace(title) + " " + strings.TrimSpace(context) + " " + querySuffix
}

// Gather runs one advanced search for the topic.
func (c *Client) Gather(ctx context.Context, title, topicContext string) (Grounding, error) {
	if c.apiKey == "" {
		return Grounding{}, ErrMissingKey
	}

	body, err := json.Marshal(searchRequest{
		APIKey:        c.apiKey,
		Query:         Query(title, topicContext),
		SearchDepth:   "advanced",
		IncludeImages: true,
		IncludeAnswer: true,
		MaxResults:    c.maxResults,
	})
	if err != nil {
		return Grounding{}, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Grounding{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Grounding{}, fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Grounding{}, fmt.Errorf("%w: status %d: %s", ErrProviderUnreachable, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return Grounding{}, fmt.Errorf("%w: decode response: %v", ErrProviderUnreachable, err)
	}

	images := make([]Image, 0, len(sr.Images))
	for _, img := range sr.Images {
		if strings.TrimSpace(img.URL) != "" {
			images = append(images, img)
		}
	}

	if len(images) == 0 && c.finder != nil && len(sr.Results) > 0 {
		pages := make([]string, 0, 3)
		for _, r := range sr.Results {
			if r.URL != "" && len(pages) < 3 {
				pages = append(pages, r.URL)
			}
		}
		for _, u := range c.finder.FindImages(ctx, pages, 3) {
			images = append(images, Image{URL: u})
		}
		slog.Debug("Discovered images from result pages", "pages", len(pages), "found", len(images))
	}

	g := Grounding{
		Items:  sr.Results,
		Block:  BuildBlock(sr.Results, c.maxBlockChars),
		Images: images,
	}
	for _, img := range images {
		g.SourceImageURLs = append(g.SourceImageURLs, img.URL)
		g.ProxiedImageURLs = append(g.ProxiedImageURLs, ProxyURL(c.imageProxy, img.URL))
	}
	return g, nil
}

// BuildBlock formats items as numbered sources. Whole items are kept in
// order while they fit in maxChars runes; later items are dropped. If even
// the first item does not fit it is cut to the budget.
func BuildBlock(items []Item, maxChars int) string {
	var sb strings.Builder
	used := 0
	for i, it := range items {
		entry := fmt.Sprintf("[FUENTE %d]: %s\nDATOS: %s\nURL: %s", i+1, it.Title, it.Content, it.URL)
		sep := 0
		if i > 0 {
			sep = 2
		}
		n := len([]rune(entry))
		if maxChars > 0 && used+sep+n > maxChars {
			if i == 0 {
				return string([]rune(entry)[:maxChars])
			}
			break
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(entry)
		used += sep + n
	}
	return sb.String()
}

// ProxyURL routes an image through the display proxy, falling back to the
// original if the proxy cannot fetch it.
func ProxyURL(proxy, imageURL string) string {
	if proxy == "" {
		return imageURL
	}
	enc := url.QueryEscape(imageURL)
	return proxy + "?url=" + enc + "&default=" + enc + "&n=-1"
}
