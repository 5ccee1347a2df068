// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package claude plans research iterations and synthesizes reports through
// the Claude Messages API.
package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/pkg/types"
)

// messagesAPIBase is the Claude Messages API endpoint. Package-level var
// for test substitution.
var messagesAPIBase = "https://api.anthropic.com/v1/messages"

const (
	apiVersion         = "2023-06-01"
	defaultModel       = "claude-3-5-sonnet-latest"
	planMaxTokens      = 4096
	synthesisMaxTokens = 8192
)

// Planner calls the Claude API to choose the next search and to synthesize
// the final report. It is stateless between calls: every request rebuilds
// its message list from the session record.
type Planner struct {
	Config types.AIConfig
	HTTP   *http.Client

	// Now supplies the date for the system prompt. Tests override it;
	// nil means time.Now.
	Now func() time.Time
}

// apiRequest is the request body for the Claude Messages API.
type apiRequest struct {
	Model      string      `json:"model"`
	MaxTokens  int         `json:"max_tokens"`
	System     string      `json:"system,omitempty"`
	Messages   []message   `json:"messages"`
	Tools      []tool      `json:"tools,omitempty"`
	ToolChoice *toolChoice `json:"tool_choice,omitempty"`
}

// message is a single message in the Claude API conversation.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// tool describes a tool the model may call.
type tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// toolChoice forces the model to answer with a tool call.
type toolChoice struct {
	Type string `json:"type"`
}

// apiResponse is the response body from the Claude Messages API.
type apiResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

// contentBlock is a content block in the Claude API response.
type contentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text"`
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// call posts a request to the Messages API with retry and decodes the response.
func (p *Planner) call(ctx context.Context, body apiRequest) (*apiResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, messagesAPIBase, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.Config.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	client := p.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, p.Config.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckAuthorization(resp); err != nil {
		return nil, fmt.Errorf("Claude API: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var ar apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, fmt.Errorf("decoding Claude response: %w", err)
	}
	if len(ar.Content) == 0 {
		return nil, fmt.Errorf("Claude API returned empty content")
	}
	return &ar, nil
}

// model returns the configured model identifier or the default.
func (p *Planner) model() string {
	if p.Config.Model != "" {
		return p.Config.Model
	}
	return defaultModel
}

// now returns the injected clock or wall time.
func (p *Planner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// textContent joins the text blocks of a response.
func textContent(resp *apiResponse) string {
	var parts []string
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}
