package headlines

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ondaradio/onda/internal/config"
	"github.com/ondaradio/onda/internal/models"
)

// ErrMissingKey means no NewsData.io key is configured.
var ErrMissingKey = errors.New("newsdata api key not configured")

const newsDataTimeLayout = "2006-01-02 15:04:05"

// NewsData queries the NewsData.io latest-news endpoint.
type NewsData struct {
	httpClient *http.Client
	apiKey     string
	endpoint   string
	language   string
	country    string
}

func NewNewsData(cfg config.NewsConfig, httpClient *http.Client) *NewsData {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	n := &NewsData{
		httpClient: httpClient,
		apiKey:     cfg.APIKey,
		endpoint:   cfg.Endpoint,
		language:   cfg.Language,
		country:    cfg.Country,
	}
	if n.endpoint == "" {
		n.endpoint = "https://newsdata.io/api/1/news"
	}
	if n.language == "" {
		n.language = "es"
	}
	if n.country == "" {
		n.country = "co"
	}
	return n
}

func (n *NewsData) Name() string { return "newsdata" }

// BuildURL applies the query priority: search text, then a category other
// than "general", then the default country.
func (n *NewsData) BuildURL(q Query) string {
	params := url.Values{}
	params.Set("apikey", n.apiKey)
	params.Set("language", n.language)

	switch {
	case strings.TrimSpace(q.Text) != "":
		params.Set("q", strings.TrimSpace(q.Text))
	case q.Category != "" && q.Category != "general":
		params.Set("category", q.Category)
	default:
		params.Set("country", n.country)
	}
	return n.endpoint + "?" + params.Encode()
}

type newsDataResponse struct {
	Status  string         `json:"status"`
	Results []newsDataItem `json:"results"`
}

type newsDataItem struct {
	ArticleID   string   `json:"article_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Link        string   `json:"link"`
	ImageURL    string   `json:"image_url"`
	PubDate     string   `json:"pubDate"`
	SourceID    string   `json:"source_id"`
	Category    []string `json:"category"`
	Country     []string `json:"country"`
}

func (n *NewsData) Fetch(ctx context.Context, q Query) ([]models.Headline, error) {
	if n.apiKey == "" {
		return nil, ErrMissingKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.BuildURL(q), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsdata request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("newsdata API error: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed newsDataResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode newsdata response: %w", err)
	}

	out := make([]models.Headline, 0, len(parsed.Results))
	for _, item := range parsed.Results {
		h := models.Headline{
			Title:       strings.TrimSpace(item.Title),
			Description: strings.TrimSpace(item.Description),
			URL:         item.Link,
			ImageURL:    item.ImageURL,
			Source:      item.SourceID,
			Category:    first(item.Category),
			Country:     first(item.Country),
		}
		if t, err := time.Parse(newsDataTimeLayout, item.PubDate); err == nil {
			h.PublishedAt = &t
		}
		out = append(out, h)
	}
	return out, nil
}

func first(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}
