// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pdiddy/deep-research/pkg/types"
)

func TestBriefRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brief.yaml")

	in := &Brief{
		Query: "mechanisms of sleep-dependent memory consolidation",
		Settings: BriefSettings{
			Iterations:       4,
			Model:            "claude-3-5-sonnet-latest",
			ResultsPerSearch: 8,
			DateFrom:         "2020-01-01",
		},
	}
	if err := WriteBrief(path, in); err != nil {
		t.Fatalf("WriteBrief() error: %v", err)
	}

	out, err := ReadBrief(path)
	if err != nil {
		t.Fatalf("ReadBrief() error: %v", err)
	}
	if out.Query != in.Query {
		t.Errorf("query = %q, want %q", out.Query, in.Query)
	}
	if out.Settings != in.Settings {
		t.Errorf("settings = %+v, want %+v", out.Settings, in.Settings)
	}
	if out.Outcome != nil {
		t.Errorf("outcome = %+v, want nil before any run", out.Outcome)
	}
}

func TestReadBriefMissingQuery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brief.yaml")
	if err := os.WriteFile(path, []byte("settings:\n  iterations: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadBrief(path); err == nil {
		t.Fatal("expected error for brief with no query")
	}
}

func TestReadBriefMissingFile(t *testing.T) {
	if _, err := ReadBrief(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing brief file")
	}
}

func TestRecordOutcome(t *testing.T) {
	completed := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	s := &types.ResearchSession{
		ID: "sess-1",
		Iterations: []types.IterationRecord{
			{Index: 1, Sources: []types.SourceResult{{URL: "https://a"}, {URL: "https://b"}}},
			{Index: 2, Sources: []types.SourceResult{{URL: "https://c"}}},
		},
		CompletedAt: completed,
	}

	var b Brief
	b.RecordOutcome(s)
	if b.Outcome == nil {
		t.Fatal("outcome not recorded")
	}
	if b.Outcome.SessionID != "sess-1" || b.Outcome.Iterations != 2 || b.Outcome.Sources != 3 {
		t.Errorf("outcome = %+v", b.Outcome)
	}
	if !b.Outcome.CompletedAt.Equal(completed) {
		t.Errorf("completed_at = %v, want %v", b.Outcome.CompletedAt, completed)
	}
}

func TestDateRange(t *testing.T) {
	tests := []struct {
		name    string
		s       BriefSettings
		from    string
		to      string
		wantErr bool
	}{
		{name: "empty", s: BriefSettings{}},
		{name: "from only", s: BriefSettings{DateFrom: "2021-06-15"}, from: "2021-06-15"},
		{name: "both", s: BriefSettings{DateFrom: "2021-01-01", DateTo: "2022-12-31"}, from: "2021-01-01", to: "2022-12-31"},
		{name: "bad from", s: BriefSettings{DateFrom: "June 2021"}, wantErr: true},
		{name: "bad to", s: BriefSettings{DateTo: "2022/01/01"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := tt.s.DateRange()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected parse error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DateRange() error: %v", err)
			}
			check := func(label string, got time.Time, want string) {
				if want == "" {
					if !got.IsZero() {
						t.Errorf("%s = %v, want zero", label, got)
					}
					return
				}
				w, _ := time.Parse("2006-01-02", want)
				if !got.Equal(w) {
					t.Errorf("%s = %v, want %v", label, got, w)
				}
			}
			check("from", from, tt.from)
			check("to", to, tt.to)
		})
	}
}
