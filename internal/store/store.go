// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store archives completed research sessions in SQLite and builds
// a full-text index over the retrieved sources.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/deep-research/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "research.db"
)

// Store manages the session archive SQLite database.
type Store struct {
	db         *sql.DB
	dataDir    string
	maxResults int
}

// New opens or creates the archive database at dataDir/index/research.db.
// It creates the schema if it does not exist.
func New(cfg types.StoreConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.DataDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		dataDir:    cfg.DataDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			model TEXT,
			max_iterations INTEGER,
			report TEXT,
			stop_reason TEXT,
			started_at TEXT,
			completed_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS iterations (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			search_query TEXT NOT NULL,
			date_from TEXT,
			date_to TEXT,
			started_at TEXT,
			PRIMARY KEY (session_id, idx)
		)`,
		`CREATE TABLE IF NOT EXISTS sources (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			iteration INTEGER NOT NULL,
			position INTEGER NOT NULL,
			url TEXT NOT NULL,
			title TEXT,
			author TEXT,
			published TEXT,
			excerpt TEXT,
			text TEXT,
			fetch_error TEXT,
			retrieved_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sources_session ON sources(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_iterations_session ON iterations(session_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='sources_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE sources_fts USING fts5(title, text, content=sources, content_rowid=rowid)`,
			`CREATE TRIGGER sources_ai AFTER INSERT ON sources BEGIN
				INSERT INTO sources_fts(rowid, title, text) VALUES (new.rowid, new.title, new.text);
			END`,
			`CREATE TRIGGER sources_ad AFTER DELETE ON sources BEGIN
				INSERT INTO sources_fts(sources_fts, rowid, title, text) VALUES('delete', old.rowid, old.title, old.text);
			END`,
			`CREATE TRIGGER sources_au AFTER UPDATE ON sources BEGIN
				INSERT INTO sources_fts(sources_fts, rowid, title, text) VALUES('delete', old.rowid, old.title, old.text);
				INSERT INTO sources_fts(rowid, title, text) VALUES (new.rowid, new.title, new.text);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// Save archives a session, replacing any previous record with the same ID.
func (s *Store) Save(ctx context.Context, session *types.ResearchSession) error {
	if session.ID == "" {
		return fmt.Errorf("session has no ID")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Replace semantics: drop any earlier archive of this session. Child
	// rows go first and explicitly, so the FTS delete trigger fires for
	// every source row.
	if err := deleteSessionRows(ctx, tx, session.ID); err != nil {
		return fmt.Errorf("deleting previous record: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, query, model, max_iterations, report, stop_reason, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.Query, session.Model, session.MaxIterations,
		session.Report, string(session.StopReason),
		timeStr(session.StartedAt), timeStr(session.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}

	srcStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sources (session_id, iteration, position, url, title, author, published, excerpt, text, fetch_error, retrieved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing source insert: %w", err)
	}
	defer srcStmt.Close()

	for _, it := range session.Iterations {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO iterations (session_id, idx, search_query, date_from, date_to, started_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			session.ID, it.Index, it.SearchQuery,
			timeStr(it.DateFrom), timeStr(it.DateTo), timeStr(it.StartedAt),
		)
		if err != nil {
			return fmt.Errorf("inserting iteration %d: %w", it.Index, err)
		}

		for pos, src := range it.Sources {
			_, err := srcStmt.ExecContext(ctx,
				session.ID, it.Index, pos, src.URL, src.Title, src.Author,
				timeStr(src.Published), src.Excerpt, src.Text, src.FetchError,
				timeStr(src.RetrievedAt),
			)
			if err != nil {
				return fmt.Errorf("inserting source %s: %w", src.URL, err)
			}
		}
	}

	return tx.Commit()
}

// Delete removes a session and its iterations and sources from the archive.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM sessions WHERE id = ?`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("checking session: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("session %s not found", id)
	}

	if err := deleteSessionRows(ctx, tx, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return tx.Commit()
}

// deleteSessionRows removes a session and its children. Sources are
// deleted row by row through the FTS sync trigger before the parent goes.
func deleteSessionRows(ctx context.Context, tx *sql.Tx, id string) error {
	for _, stmt := range []string{
		`DELETE FROM sources WHERE session_id = ?`,
		`DELETE FROM iterations WHERE session_id = ?`,
		`DELETE FROM sessions WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return err
		}
	}
	return nil
}

func timeStr(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
