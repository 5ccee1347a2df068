// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deep-research/pkg/types"
)

// Brief is the on-disk representation of a research request and, after a
// run, a pointer to the archived session. A brief can be saved once and
// re-run later with identical settings.
type Brief struct {
	Query    string        `yaml:"query"`
	Settings BriefSettings `yaml:"settings"`
	Outcome  *BriefOutcome `yaml:"outcome,omitempty"`
}

// BriefSettings stores the run configuration in a serializable form.
type BriefSettings struct {
	Iterations       int    `yaml:"iterations"`
	Model            string `yaml:"model,omitempty"`
	ResultsPerSearch int    `yaml:"results_per_search,omitempty"`
	MaxContentChars  int    `yaml:"max_content_chars,omitempty"`
	DateFrom         string `yaml:"date_from,omitempty"`
	DateTo           string `yaml:"date_to,omitempty"`
}

// BriefOutcome records where the resulting session was archived.
type BriefOutcome struct {
	SessionID   string    `yaml:"session_id"`
	Iterations  int       `yaml:"iterations"`
	Sources     int       `yaml:"sources"`
	CompletedAt time.Time `yaml:"completed_at"`
}

const briefDateFmt = "2006-01-02"

// ReadBrief loads a brief from a YAML file.
func ReadBrief(path string) (*Brief, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading brief: %w", err)
	}
	var b Brief
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parsing brief: %w", err)
	}
	if b.Query == "" {
		return nil, fmt.Errorf("brief %s has no query", path)
	}
	return &b, nil
}

// WriteBrief saves a brief to a YAML file.
func WriteBrief(path string, b *Brief) error {
	data, err := yaml.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshaling brief: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// RecordOutcome fills the brief's outcome from a completed session.
func (b *Brief) RecordOutcome(s *types.ResearchSession) {
	b.Outcome = &BriefOutcome{
		SessionID:   s.ID,
		Iterations:  len(s.Iterations),
		Sources:     s.SourceCount(),
		CompletedAt: s.CompletedAt,
	}
}

// DateRange parses the brief's optional publication-date bounds.
func (s BriefSettings) DateRange() (from, to time.Time, err error) {
	if s.DateFrom != "" {
		from, err = time.Parse(briefDateFmt, s.DateFrom)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid date_from %q: %w", s.DateFrom, err)
		}
	}
	if s.DateTo != "" {
		to, err = time.Parse(briefDateFmt, s.DateTo)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid date_to %q: %w", s.DateTo, err)
		}
	}
	return from, to, nil
}
