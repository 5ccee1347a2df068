// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for deep-research sessions.
// A ResearchSession records one complete run of the research loop: the
// user's question, every iteration's search and retrieved sources, and the
// synthesized report.
package types

import "time"

// StopReason records why the research loop stopped iterating.
type StopReason string

const (
	// StopMaxIterations means the loop ran its full iteration budget.
	StopMaxIterations StopReason = "max_iterations"

	// StopModelComplete means the model signaled that research was
	// sufficient before the budget was exhausted.
	StopModelComplete StopReason = "model_complete"
)

// SourceResult is a single source found by search and (when possible)
// fetched in full. Search fills URL, Title, Author, Published, and Excerpt;
// the fetch stage fills Text, FetchError, and RetrievedAt.
type SourceResult struct {
	// URL is the source location as returned by search.
	URL string `json:"url" yaml:"url"`

	// Title is the source title as returned by search.
	Title string `json:"title" yaml:"title"`

	// Author is the author string, when the search backend provides one.
	Author string `json:"author,omitempty" yaml:"author,omitempty"`

	// Published is the publication date, when known.
	Published time.Time `json:"published,omitempty" yaml:"published,omitempty"`

	// Excerpt is the search-time content excerpt.
	Excerpt string `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`

	// Text is the full extracted article text in Markdown. Empty when the
	// fetch failed; FetchError carries the reason.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// FetchError is set when full-text retrieval failed for this source.
	FetchError string `json:"fetch_error,omitempty" yaml:"fetch_error,omitempty"`

	// RetrievedAt is when the fetch attempt finished.
	RetrievedAt time.Time `json:"retrieved_at,omitempty" yaml:"retrieved_at,omitempty"`
}

// Fetched reports whether full-text retrieval succeeded for this source.
func (s SourceResult) Fetched() bool {
	return s.FetchError == "" && s.Text != ""
}

// IterationRecord is one completed search-then-fetch cycle within a session.
type IterationRecord struct {
	// Index is the 1-based iteration number.
	Index int `json:"index" yaml:"index"`

	// SearchQuery is the query the model chose for this iteration.
	SearchQuery string `json:"search_query" yaml:"search_query"`

	// DateFrom and DateTo bound the publication-date filter the model
	// requested, when it requested one.
	DateFrom time.Time `json:"date_from,omitempty" yaml:"date_from,omitempty"`
	DateTo   time.Time `json:"date_to,omitempty" yaml:"date_to,omitempty"`

	// Sources holds the retrieved sources in search ranking order.
	Sources []SourceResult `json:"sources" yaml:"sources"`

	// StartedAt is when the iteration began.
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
}

// ResearchSession is the accumulated state of one research run. The
// controller owns it exclusively for the session's lifetime; the number of
// iteration records never exceeds MaxIterations.
type ResearchSession struct {
	// ID uniquely identifies the session in the archive.
	ID string `json:"id" yaml:"id"`

	// Query is the user's research question.
	Query string `json:"query" yaml:"query"`

	// Model is the AI model identifier used for planning and synthesis.
	Model string `json:"model" yaml:"model"`

	// MaxIterations is the configured iteration budget.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// Iterations lists completed iterations in order.
	Iterations []IterationRecord `json:"iterations" yaml:"iterations"`

	// Report is the synthesized literature review in Markdown. Empty until
	// synthesis completes.
	Report string `json:"report,omitempty" yaml:"report,omitempty"`

	// StopReason records why iteration stopped.
	StopReason StopReason `json:"stop_reason,omitempty" yaml:"stop_reason,omitempty"`

	// StartedAt and CompletedAt bound the session run.
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// Completed reports whether synthesis has produced a report.
func (s *ResearchSession) Completed() bool {
	return s.Report != ""
}

// SourceCount returns the total number of sources across all iterations.
func (s *ResearchSession) SourceCount() int {
	n := 0
	for _, it := range s.Iterations {
		n += len(it.Sources)
	}
	return n
}
