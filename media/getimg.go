// Package media turns suggestion descriptions into hosted assets: images
// are generated and re-uploaded to the target site, videos are searched for.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultGetImgURL = "https://api.getimg.ai/v1/flux-schnell/text-to-image"

// GetImgClient generates images from text prompts via the getimg.ai API.
type GetImgClient struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

// NewGetImgClient creates a getimg.ai client. apiURL may be empty to use
// the default endpoint; httpClient may be nil.
func NewGetImgClient(apiKey, apiURL string, httpClient *http.Client) *GetImgClient {
	if apiURL == "" {
		apiURL = defaultGetImgURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &GetImgClient{
		apiKey:     apiKey,
		apiURL:     apiURL,
		httpClient: httpClient,
	}
}

type generateRequest struct {
	Prompt         string `json:"prompt"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	Steps          int    `json:"steps"`
	OutputFormat   string `json:"output_format"`
	ResponseFormat string `json:"response_format"`
}

type generateResponse struct {
	URL   string `json:"url"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate produces an image for prompt and returns its source URL on the
// generation service. Callers re-host the image before embedding it.
func (c *GetImgClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Prompt:         prompt,
		Width:          1024,
		Height:         1024,
		Steps:          4,
		OutputFormat:   "jpeg",
		ResponseFormat: "url",
	})
	if err != nil {
		return "", fmt.Errorf("marshaling generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating generation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("image generation call failed: %w", err)
	}
	defer resp.Body.Close()

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding generation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := resp.Status
		if result.Error != nil {
			msg = result.Error.Message
		}
		return "", fmt.Errorf("image generation failed: %s", msg)
	}
	if result.URL == "" {
		return "", fmt.Errorf("image generation returned no URL")
	}
	return result.URL, nil
}
