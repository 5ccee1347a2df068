// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/deep-research/pkg/types"
)

const defaultResultsPerSearch = 5

// Controller owns one session at a time and drives the iterate-then-
// synthesize loop. Collaborators are injected so the controller itself
// contains no network code and no hidden randomness beyond the session ID.
type Controller struct {
	planner Planner
	search  SearchBackend
	fetch   FetchBackend
	cfg     types.ResearchConfig
	w       io.Writer
}

// New assembles a controller. A nil progress writer discards progress output.
func New(planner Planner, search SearchBackend, fetch FetchBackend, cfg types.ResearchConfig, w io.Writer) *Controller {
	if w == nil {
		w = io.Discard
	}
	return &Controller{planner: planner, search: search, fetch: fetch, cfg: cfg, w: w}
}

// Run executes a complete research session for query. Iteration stops at
// the configured budget or earlier when the planner signals completion;
// synthesis always runs afterwards. A search or planner failure aborts the
// session with no partial report. Cancelling ctx halts before the next
// iteration begins.
func (c *Controller) Run(ctx context.Context, query string) (*types.ResearchSession, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("research query is empty")
	}
	if c.cfg.MaxIterations < 0 {
		return nil, fmt.Errorf("max iterations must be non-negative, got %d", c.cfg.MaxIterations)
	}

	session := &types.ResearchSession{
		ID:            uuid.NewString(),
		Query:         query,
		MaxIterations: c.cfg.MaxIterations,
		StartedAt:     time.Now().UTC(),
	}

	fmt.Fprintf(c.w, "starting research on %q (%d iteration budget)\n", query, c.cfg.MaxIterations)

	for i := 0; i < c.cfg.MaxIterations; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		directive, err := c.planner.Plan(ctx, session)
		if err != nil {
			return nil, fmt.Errorf("planning iteration %d: %w", i+1, err)
		}

		if directive.Done {
			session.StopReason = types.StopModelComplete
			fmt.Fprintf(c.w, "research complete after %d iteration(s): %s\n", i, directive.Reason)
			break
		}

		fmt.Fprintf(c.w, "iteration %d/%d: searching %q\n", i+1, c.cfg.MaxIterations, directive.Query)

		numResults := c.cfg.ResultsPerSearch
		if numResults <= 0 {
			numResults = defaultResultsPerSearch
		}
		// Session-level date bounds apply when the model did not narrow
		// the window itself.
		if directive.DateFrom.IsZero() {
			directive.DateFrom = c.cfg.DateFrom
		}
		if directive.DateTo.IsZero() {
			directive.DateTo = c.cfg.DateTo
		}
		hits, err := c.search.Search(ctx, types.SearchRequest{
			Query:      directive.Query,
			NumResults: numResults,
			DateFrom:   directive.DateFrom,
			DateTo:     directive.DateTo,
		})
		if err != nil {
			return nil, fmt.Errorf("search %q (iteration %d): %w", directive.Query, i+1, err)
		}

		record := types.IterationRecord{
			Index:       i + 1,
			SearchQuery: directive.Query,
			DateFrom:    directive.DateFrom,
			DateTo:      directive.DateTo,
			StartedAt:   time.Now().UTC(),
		}
		record.Sources = c.fetchAll(ctx, hits)
		session.Iterations = append(session.Iterations, record)

		fetched := 0
		for _, s := range record.Sources {
			if s.Fetched() {
				fetched++
			}
		}
		fmt.Fprintf(c.w, "iteration %d/%d: %d result(s), %d fetched in full\n",
			i+1, c.cfg.MaxIterations, len(record.Sources), fetched)
	}

	if session.StopReason == "" {
		session.StopReason = types.StopMaxIterations
	}

	fmt.Fprintln(c.w, "synthesizing report")
	report, err := c.planner.Synthesize(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("synthesizing report: %w", err)
	}
	session.Report = report
	session.CompletedAt = time.Now().UTC()

	return session, nil
}

// fetchAll retrieves full text for every hit, preserving search ranking
// order. A failed fetch is recorded on the source and never drops the
// other sources in the iteration.
func (c *Controller) fetchAll(ctx context.Context, hits []types.SourceResult) []types.SourceResult {
	if len(hits) == 0 {
		return nil
	}

	sources := make([]types.SourceResult, len(hits))
	copy(sources, hits)

	par := c.cfg.ParallelFetches
	if par < 2 {
		for i := range sources {
			c.fetchOne(ctx, &sources[i])
		}
		return sources
	}

	// Bounded fan-out; each goroutine writes only its own index, so
	// ranking order survives regardless of completion order.
	sem := make(chan struct{}, par)
	var wg sync.WaitGroup
	for i := range sources {
		wg.Add(1)
		sem <- struct{}{}
		go func(src *types.SourceResult) {
			defer wg.Done()
			defer func() { <-sem }()
			c.fetchOne(ctx, src)
		}(&sources[i])
	}
	wg.Wait()
	return sources
}

// fetchOne attempts full-text retrieval for a single source.
func (c *Controller) fetchOne(ctx context.Context, src *types.SourceResult) {
	text, err := c.fetch.Fetch(ctx, src.URL)
	src.RetrievedAt = time.Now().UTC()
	if err != nil {
		src.FetchError = err.Error()
		fmt.Fprintf(c.w, "warning: fetch failed for %s: %v\n", src.URL, err)
		return
	}
	src.Text = text
}
