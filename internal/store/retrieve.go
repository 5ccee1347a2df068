// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pdiddy/deep-research/pkg/types"
)

// SessionSummary is the archive listing view of a session.
type SessionSummary struct {
	ID          string           `json:"id" yaml:"id"`
	Query       string           `json:"query" yaml:"query"`
	Model       string           `json:"model,omitempty" yaml:"model,omitempty"`
	Iterations  int              `json:"iterations" yaml:"iterations"`
	Sources     int              `json:"sources" yaml:"sources"`
	StopReason  types.StopReason `json:"stop_reason,omitempty" yaml:"stop_reason,omitempty"`
	HasReport   bool             `json:"has_report" yaml:"has_report"`
	StartedAt   time.Time        `json:"started_at" yaml:"started_at"`
	CompletedAt time.Time        `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// List returns summaries of all archived sessions, most recent first.
func (s *Store) List(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT se.id, se.query, se.model, se.report, se.stop_reason, se.started_at, se.completed_at,
			(SELECT count(*) FROM iterations i WHERE i.session_id = se.id),
			(SELECT count(*) FROM sources sr WHERE sr.session_id = se.id)
		FROM sessions se
		ORDER BY se.started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var summaries []SessionSummary
	for rows.Next() {
		var (
			sum        SessionSummary
			report     string
			stopReason string
			started    string
			completed  string
		)
		if err := rows.Scan(
			&sum.ID, &sum.Query, &sum.Model, &report, &stopReason,
			&started, &completed, &sum.Iterations, &sum.Sources,
		); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sum.HasReport = report != ""
		sum.StopReason = types.StopReason(stopReason)
		sum.StartedAt = parseTime(started)
		sum.CompletedAt = parseTime(completed)
		summaries = append(summaries, sum)
	}

	return summaries, rows.Err()
}

// Get reassembles a full session from the archive.
func (s *Store) Get(ctx context.Context, id string) (*types.ResearchSession, error) {
	var (
		session    types.ResearchSession
		stopReason string
		started    string
		completed  string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, query, model, max_iterations, report, stop_reason, started_at, completed_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(
		&session.ID, &session.Query, &session.Model, &session.MaxIterations,
		&session.Report, &stopReason, &started, &completed,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session %s not found", id)
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}
	session.StopReason = types.StopReason(stopReason)
	session.StartedAt = parseTime(started)
	session.CompletedAt = parseTime(completed)

	iterations, err := s.loadIterations(ctx, id)
	if err != nil {
		return nil, err
	}
	session.Iterations = iterations

	return &session, nil
}

func (s *Store) loadIterations(ctx context.Context, sessionID string) ([]types.IterationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, search_query, date_from, date_to, started_at
		 FROM iterations WHERE session_id = ? ORDER BY idx`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading iterations: %w", err)
	}
	defer rows.Close()

	var iterations []types.IterationRecord
	for rows.Next() {
		var (
			it       types.IterationRecord
			dateFrom string
			dateTo   string
			started  string
		)
		if err := rows.Scan(&it.Index, &it.SearchQuery, &dateFrom, &dateTo, &started); err != nil {
			return nil, fmt.Errorf("scanning iteration row: %w", err)
		}
		it.DateFrom = parseTime(dateFrom)
		it.DateTo = parseTime(dateTo)
		it.StartedAt = parseTime(started)
		iterations = append(iterations, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range iterations {
		sources, err := s.loadSources(ctx, sessionID, iterations[i].Index)
		if err != nil {
			return nil, err
		}
		iterations[i].Sources = sources
	}

	return iterations, nil
}

func (s *Store) loadSources(ctx context.Context, sessionID string, iteration int) ([]types.SourceResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, title, author, published, excerpt, text, fetch_error, retrieved_at
		 FROM sources WHERE session_id = ? AND iteration = ? ORDER BY position`,
		sessionID, iteration)
	if err != nil {
		return nil, fmt.Errorf("loading sources: %w", err)
	}
	defer rows.Close()

	var sources []types.SourceResult
	for rows.Next() {
		var (
			src       types.SourceResult
			published string
			retrieved string
		)
		if err := rows.Scan(
			&src.URL, &src.Title, &src.Author, &published,
			&src.Excerpt, &src.Text, &src.FetchError, &retrieved,
		); err != nil {
			return nil, fmt.Errorf("scanning source row: %w", err)
		}
		src.Published = parseTime(published)
		src.RetrievedAt = parseTime(retrieved)
		sources = append(sources, src)
	}

	return sources, rows.Err()
}

// SourceHit is a full-text match over archived source titles and text.
type SourceHit struct {
	SessionID    string    `json:"session_id" yaml:"session_id"`
	SessionQuery string    `json:"session_query" yaml:"session_query"`
	Iteration    int       `json:"iteration" yaml:"iteration"`
	URL          string    `json:"url" yaml:"url"`
	Title        string    `json:"title" yaml:"title"`
	Snippet      string    `json:"snippet" yaml:"snippet"`
	Published    time.Time `json:"published,omitempty" yaml:"published,omitempty"`
}

// SearchSources runs an FTS5 query over archived source titles and full
// text, ranked by relevance. A zero maxResults uses the store default.
func (s *Store) SearchSources(ctx context.Context, query string, maxResults int) ([]SourceHit, error) {
	if query == "" {
		return nil, fmt.Errorf("search query is empty")
	}
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT sr.session_id, se.query, sr.iteration, sr.url, sr.title, sr.published,
			snippet(sources_fts, 1, '[', ']', ' ... ', 12)
		FROM sources_fts
		JOIN sources sr ON sr.rowid = sources_fts.rowid
		JOIN sessions se ON se.id = sr.session_id
		WHERE sources_fts MATCH ?
		ORDER BY sources_fts.rank
		LIMIT ?`, query, maxResults)
	if err != nil {
		return nil, fmt.Errorf("querying source index: %w", err)
	}
	defer rows.Close()

	var hits []SourceHit
	for rows.Next() {
		var (
			hit       SourceHit
			published string
		)
		if err := rows.Scan(
			&hit.SessionID, &hit.SessionQuery, &hit.Iteration,
			&hit.URL, &hit.Title, &published, &hit.Snippet,
		); err != nil {
			return nil, fmt.Errorf("scanning hit row: %w", err)
		}
		hit.Published = parseTime(published)
		hits = append(hits, hit)
	}

	return hits, rows.Err()
}
