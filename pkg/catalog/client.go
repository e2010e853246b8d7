// Package catalog talks to the remote catalog service that owns the list of
// recyclable-material categories, and ships a small fiber server that plays
// that service during development.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/1F47E/ecoleta-points/pkg/models"
)

// maxBody caps how much of a response is read
const maxBody = 1 << 20

// Client fetches categories from GET {baseURL}/items
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a catalog client with the given request timeout
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchCategories returns the categories in the order the server sent them
func (c *Client) FetchCategories(ctx context.Context) ([]models.Category, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/items", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch items: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("catalog returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var categories []models.Category
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&categories); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	if categories == nil {
		categories = []models.Category{}
	}

	return categories, nil
}
