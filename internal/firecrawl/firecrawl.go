// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package firecrawl fetches full article content as Markdown through the
// Firecrawl scraping API.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/pkg/types"
)

// scrapeAPIBase is the Firecrawl scrape endpoint. Declared as a var so
// tests can substitute an httptest server.
var scrapeAPIBase = "https://api.firecrawl.dev/v1/scrape"

const defaultMaxContentChars = 100000

// Client fetches page content through the Firecrawl API.
type Client struct {
	APIKey string
	Config types.FetchConfig
	HTTP   *http.Client
}

// Name returns the backend identifier.
func (c *Client) Name() string { return "firecrawl" }

// scrapeRequest is the request body for the Firecrawl scrape endpoint.
type scrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

// scrapeResponse is the response body from the Firecrawl scrape endpoint.
type scrapeResponse struct {
	Success bool       `json:"success"`
	Error   string     `json:"error"`
	Data    scrapeData `json:"data"`
}

type scrapeData struct {
	Markdown string `json:"markdown"`
}

// Fetch retrieves the extracted article text for a URL as Markdown,
// truncated to the configured content limit.
func (c *Client) Fetch(ctx context.Context, pageURL string) (string, error) {
	if pageURL == "" {
		return "", fmt.Errorf("empty URL")
	}

	payload, err := json.Marshal(scrapeRequest{URL: pageURL, Formats: []string{"markdown"}})
	if err != nil {
		return "", fmt.Errorf("marshaling scrape request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, scrapeAPIBase, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	if c.Config.UserAgent != "" {
		req.Header.Set("User-Agent", c.Config.UserAgent)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return "", fmt.Errorf("Firecrawl API request: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckAuthorization(resp); err != nil {
		return "", fmt.Errorf("Firecrawl API: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("Firecrawl API returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var sr scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("parsing Firecrawl response: %w", err)
	}

	if !sr.Success {
		if sr.Error != "" {
			return "", fmt.Errorf("Firecrawl scrape failed: %s", sr.Error)
		}
		return "", fmt.Errorf("Firecrawl scrape failed for %s", pageURL)
	}
	if sr.Data.Markdown == "" {
		return "", fmt.Errorf("Firecrawl returned no markdown for %s", pageURL)
	}

	maxChars := c.Config.MaxContentChars
	if maxChars <= 0 {
		maxChars = defaultMaxContentChars
	}
	return truncate(sr.Data.Markdown, maxChars), nil
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
