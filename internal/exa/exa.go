// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package exa queries the Exa search API for scientific literature and
// returns ranked results with content excerpts.
package exa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/pkg/types"
)

// searchAPIBase is the Exa search endpoint. Declared as a var so tests can
// substitute an httptest server.
var searchAPIBase = "https://api.exa.ai/search"

const (
	defaultNumResults   = 5
	defaultExcerptChars = 5000
	maxNumResults       = 25
)

// Client queries the Exa API.
type Client struct {
	APIKey string
	Config types.SearchConfig
	HTTP   *http.Client
}

// Name returns the backend identifier.
func (c *Client) Name() string { return "exa" }

// exaRequest is the request body for the Exa search endpoint. The query is
// run as a keyword search over the research-paper category with content
// excerpts included.
type exaRequest struct {
	Query              string       `json:"query"`
	Type               string       `json:"type"`
	Category           string       `json:"category"`
	NumResults         int          `json:"numResults"`
	StartPublishedDate string       `json:"startPublishedDate,omitempty"`
	EndPublishedDate   string       `json:"endPublishedDate,omitempty"`
	Contents           *exaContents `json:"contents,omitempty"`
}

type exaContents struct {
	Text exaTextOptions `json:"text"`
}

type exaTextOptions struct {
	MaxCharacters int `json:"maxCharacters"`
}

// exaResponse is the response body from the Exa search endpoint.
type exaResponse struct {
	Results []exaResult `json:"results"`
}

type exaResult struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	PublishedDate string `json:"publishedDate"`
	Author        string `json:"author"`
	Text          string `json:"text"`
}

// Search queries the Exa API and returns results in ranking order. The
// ordering of the returned slice is the API's relevance ranking and must be
// preserved by callers.
func (c *Client) Search(ctx context.Context, req types.SearchRequest) ([]types.SourceResult, error) {
	if req.IsEmpty() {
		return nil, fmt.Errorf("empty search query")
	}

	numResults := req.NumResults
	if numResults <= 0 {
		numResults = defaultNumResults
	}
	if numResults > maxNumResults {
		numResults = maxNumResults
	}

	excerptChars := c.Config.ExcerptChars
	if excerptChars <= 0 {
		excerptChars = defaultExcerptChars
	}

	body := exaRequest{
		Query:      req.Query,
		Type:       "keyword",
		Category:   "research paper",
		NumResults: numResults,
		Contents:   &exaContents{Text: exaTextOptions{MaxCharacters: excerptChars}},
	}
	if !req.DateFrom.IsZero() {
		body.StartPublishedDate = req.DateFrom.UTC().Format(time.RFC3339)
	}
	if !req.DateTo.IsZero() {
		body.EndPublishedDate = req.DateTo.UTC().Format(time.RFC3339)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, searchAPIBase, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.APIKey)
	if c.Config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.Config.UserAgent)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, httpReq, 0)
	if err != nil {
		return nil, fmt.Errorf("Exa API request: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckAuthorization(resp); err != nil {
		return nil, fmt.Errorf("Exa API: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("Exa API returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var er exaResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("parsing Exa response: %w", err)
	}

	results := make([]types.SourceResult, 0, len(er.Results))
	for _, r := range er.Results {
		sr := types.SourceResult{
			URL:     r.URL,
			Title:   r.Title,
			Author:  r.Author,
			Excerpt: r.Text,
		}
		if r.PublishedDate != "" {
			if t, parseErr := time.Parse(time.RFC3339, r.PublishedDate); parseErr == nil {
				sr.Published = t
			} else if t, parseErr := time.Parse("2006-01-02", r.PublishedDate); parseErr == nil {
				sr.Published = t
			}
		}
		results = append(results, sr)
	}
	return results, nil
}
