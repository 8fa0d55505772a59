package gif

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"courtside/pkg/logger"
)

type GIF struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// Client searches a Tenor-compatible GIF API.
type Client struct {
	apiKey     string
	baseURL    string
	limit      int
	httpClient *http.Client
}

func NewClient(apiKey, baseURL string, limit int) *Client {
	if limit <= 0 {
		limit = 20
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		limit:      limit,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

type searchResponse struct {
	Results []struct {
		ID           string `json:"id"`
		MediaFormats map[string]struct {
			URL string `json:"url"`
		} `json:"media_formats"`
	} `json:"results"`
}

// Search returns GIFs matching query. Any failure yields an empty result;
// GIF search is never worth failing a request over.
func (c *Client) Search(ctx context.Context, query string) []GIF {
	query = strings.TrimSpace(query)
	if query == "" || c.apiKey == "" {
		return []GIF{}
	}

	gifs, err := c.search(ctx, query)
	if err != nil {
		logger.Warn("GIF search for %q failed: %v", query, err)
		return []GIF{}
	}
	return gifs
}

func (c *Client) search(ctx context.Context, query string) ([]GIF, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("key", c.apiKey)
	params.Set("limit", strconv.Itoa(c.limit))
	params.Set("media_filter", "gif,tinygif")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	gifs := make([]GIF, 0, len(body.Results))
	for _, r := range body.Results {
		full, ok := r.MediaFormats["gif"]
		if !ok || full.URL == "" {
			continue
		}
		gifs = append(gifs, GIF{
			ID:         r.ID,
			URL:        full.URL,
			PreviewURL: r.MediaFormats["tinygif"].URL,
		})
	}
	return gifs, nil
}
