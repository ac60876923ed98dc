// Package client holds thin HTTP clients for the external collaborators the
// core delegates to: the binary-asset store and the ticket print service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// AssetStore uploads inline image payloads and returns stable URLs that are
// persisted in place of the raw data. An upload failure is non-fatal to the
// operations that call it.
type AssetStore interface {
	Upload(ctx context.Context, images []string) ([]string, error)
}

type assetStore struct {
	baseURL    string
	httpClient *http.Client
}

// NewAssetStore builds a client for the asset collaborator. baseURL empty
// disables uploads (every call returns an error the caller downgrades to a
// warning).
func NewAssetStore(baseURL string) AssetStore {
	return &assetStore{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type uploadRequest struct {
	Images []string `json:"images"`
}

type uploadResponse struct {
	URLs []string `json:"urls"`
}

func (c *assetStore) Upload(ctx context.Context, images []string) ([]string, error) {
	if len(images) == 0 {
		return nil, nil
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("asset store not configured")
	}

	body, err := json.Marshal(uploadRequest{Images: images})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("asset store request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("asset store returned status %d", resp.StatusCode)
	}

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode asset store response: %w", err)
	}
	if len(result.URLs) != len(images) {
		return nil, fmt.Errorf("asset store returned %d urls for %d images", len(result.URLs), len(images))
	}

	return result.URLs, nil
}
