// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research runs bounded research sessions: a planner chooses each
// search, a search backend executes it, a fetch backend retrieves full
// article text, and the planner synthesizes a report from the accumulated
// findings.
package research

import (
	"context"

	"github.com/pdiddy/deep-research/pkg/types"
)

// Planner decides the next research step and produces the final report.
// Implementations call a language model; tests supply scripted mocks.
type Planner interface {
	// Plan returns a search directive or a completion signal given
	// session state so far.
	Plan(ctx context.Context, s *types.ResearchSession) (types.Directive, error)

	// Synthesize produces the final report from the complete session.
	Synthesize(ctx context.Context, s *types.ResearchSession) (string, error)
}

// SearchBackend executes one search and returns ranked results.
type SearchBackend interface {
	Name() string
	Search(ctx context.Context, req types.SearchRequest) ([]types.SourceResult, error)
}

// FetchBackend retrieves the full extracted text for a URL.
type FetchBackend interface {
	Name() string
	Fetch(ctx context.Context, url string) (string, error)
}
