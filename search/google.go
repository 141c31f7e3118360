package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultGoogleBaseURL is the Custom Search JSON API endpoint.
const DefaultGoogleBaseURL = "https://www.googleapis.com/customsearch/v1"

// GoogleClient queries the Google Custom Search JSON API.
type GoogleClient struct {
	baseURL  string
	apiKey   string
	engineID string
	client   *http.Client
}

func NewGoogleClient(baseURL, apiKey, engineID string) *GoogleClient {
	if baseURL == "" {
		baseURL = DefaultGoogleBaseURL
	}
	return &GoogleClient{
		baseURL:  baseURL,
		apiKey:   apiKey,
		engineID: engineID,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Search returns results formatted as "title: link" lines.
func (c *GoogleClient) Search(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("google search failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var out struct {
		Items []struct {
			Title string `json:"title"`
			Link  string `json:"link"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]string, 0, len(out.Items))
	for _, item := range out.Items {
		results = append(results, item.Title+": "+item.Link)
	}
	return results, nil
}
