// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/deep-research/pkg/types"
)

// planTools are the two tools offered during planning. Forced tool choice
// guarantees the model answers with exactly one of them.
var planTools = []tool{
	{
		Name:        "plan_search",
		Description: "Plan the next literature search with optional date filtering",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {
					"type": "string",
					"description": "The search query. Should ideally be under 5 words."
				},
				"start_date": {
					"type": "string",
					"description": "Optional start date in YYYY-MM-DD format"
				},
				"end_date": {
					"type": "string",
					"description": "Optional end date in YYYY-MM-DD format"
				}
			},
			"required": ["query"]
		}`),
	},
	{
		Name:        "finish_research",
		Description: "Signal that accumulated findings are sufficient and synthesis should begin",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"reason": {
					"type": "string",
					"description": "Why the research is sufficient"
				}
			},
			"required": ["reason"]
		}`),
	},
}

// planSearchInput is the decoded input of a plan_search tool call.
type planSearchInput struct {
	Query     string `json:"query"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// finishResearchInput is the decoded input of a finish_research tool call.
type finishResearchInput struct {
	Reason string `json:"reason"`
}

// Plan asks the model for the next research step given session state so
// far. It returns either a search directive or a completion signal.
func (p *Planner) Plan(ctx context.Context, s *types.ResearchSession) (types.Directive, error) {
	prompt, err := renderPlanPrompt(s)
	if err != nil {
		return types.Directive{}, fmt.Errorf("rendering plan prompt: %w", err)
	}

	resp, err := p.call(ctx, apiRequest{
		Model:      p.model(),
		MaxTokens:  planMaxTokens,
		System:     renderSystemPrompt(p.now()),
		Messages:   []message{{Role: "user", Content: prompt}},
		Tools:      planTools,
		ToolChoice: &toolChoice{Type: "any"},
	})
	if err != nil {
		return types.Directive{}, err
	}

	for _, block := range resp.Content {
		if block.Type != "tool_use" {
			continue
		}
		switch block.Name {
		case "plan_search":
			var in planSearchInput
			if err := json.Unmarshal(block.Input, &in); err != nil {
				return types.Directive{}, fmt.Errorf("decoding plan_search input: %w", err)
			}
			if strings.TrimSpace(in.Query) == "" {
				return types.Directive{}, fmt.Errorf("model planned an empty search query")
			}
			d := types.Directive{Query: strings.TrimSpace(in.Query)}
			if d.DateFrom, err = parseToolDate(in.StartDate); err != nil {
				return types.Directive{}, fmt.Errorf("plan_search start_date: %w", err)
			}
			if d.DateTo, err = parseToolDate(in.EndDate); err != nil {
				return types.Directive{}, fmt.Errorf("plan_search end_date: %w", err)
			}
			return d, nil

		case "finish_research":
			var in finishResearchInput
			if err := json.Unmarshal(block.Input, &in); err != nil {
				return types.Directive{}, fmt.Errorf("decoding finish_research input: %w", err)
			}
			return types.Directive{Done: true, Reason: in.Reason}, nil
		}
	}

	return types.Directive{}, fmt.Errorf("model response contained no planning tool call")
}

// Synthesize asks the model for the final literature review over the
// complete accumulated session state.
func (p *Planner) Synthesize(ctx context.Context, s *types.ResearchSession) (string, error) {
	prompt, err := renderSynthesisPrompt(s)
	if err != nil {
		return "", fmt.Errorf("rendering synthesis prompt: %w", err)
	}

	resp, err := p.call(ctx, apiRequest{
		Model:     p.model(),
		MaxTokens: synthesisMaxTokens,
		System:    renderSystemPrompt(p.now()),
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	report := textContent(resp)
	if report == "" {
		return "", fmt.Errorf("model returned an empty report")
	}
	return report, nil
}

// parseToolDate accepts the YYYY-MM-DD form the tool schema asks for, plus
// RFC 3339 because models sometimes answer with full timestamps anyway.
func parseToolDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
