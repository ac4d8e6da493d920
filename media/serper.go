package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultSerperURL = "https://google.serper.dev/videos"

// SerperClient searches YouTube videos via the Serper API.
type SerperClient struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

// NewSerperClient creates a Serper client. apiURL may be empty to use the
// default endpoint; httpClient may be nil.
func NewSerperClient(apiKey, apiURL string, httpClient *http.Client) *SerperClient {
	if apiURL == "" {
		apiURL = defaultSerperURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &SerperClient{
		apiKey:     apiKey,
		apiURL:     apiURL,
		httpClient: httpClient,
	}
}

// Video is one search result.
type Video struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type videoSearchResponse struct {
	Videos []Video `json:"videos"`
}

// SearchVideos returns videos matching query, best match first.
func (c *SerperClient) SearchVideos(ctx context.Context, query string) ([]Video, error) {
	body, err := json.Marshal(map[string]string{"q": query})
	if err != nil {
		return nil, fmt.Errorf("marshaling search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("video search call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("video search failed: status %d", resp.StatusCode)
	}

	var result videoSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	return result.Videos, nil
}
