// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deep-research/pkg/types"
)

// RenderReport formats a session's report as a standalone Markdown
// document with a methodology appendix listing every search and source.
func RenderReport(s *types.ResearchSession) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Research Report: %s\n\n", s.Query)
	if s.Report != "" {
		b.WriteString(s.Report)
		b.WriteString("\n")
	} else {
		b.WriteString("_No report was synthesized for this session._\n")
	}

	b.WriteString("\n---\n\n## Appendix: Research Trail\n\n")
	if s.Model != "" {
		fmt.Fprintf(&b, "Model: %s. ", s.Model)
	}
	fmt.Fprintf(&b, "Iterations: %d of %d budgeted (%s). Sources: %d.\n",
		len(s.Iterations), s.MaxIterations, s.StopReason, s.SourceCount())

	for _, it := range s.Iterations {
		fmt.Fprintf(&b, "\n### Iteration %d: %q\n\n", it.Index, it.SearchQuery)
		if !it.DateFrom.IsZero() || !it.DateTo.IsZero() {
			fmt.Fprintf(&b, "Published %s to %s.\n\n",
				dateOr(it.DateFrom, "any"), dateOr(it.DateTo, "any"))
		}
		for _, src := range it.Sources {
			status := "full text"
			if !src.Fetched() {
				status = "excerpt only"
				if src.FetchError != "" {
					status = "fetch failed"
				}
			}
			title := src.Title
			if title == "" {
				title = src.URL
			}
			fmt.Fprintf(&b, "- [%s](%s) (%s)\n", title, src.URL, status)
		}
	}

	return b.String()
}

func dateOr(t time.Time, fallback string) string {
	if t.IsZero() {
		return fallback
	}
	return t.Format("2006-01-02")
}

// WriteReport writes the formatted report document to path.
func WriteReport(path string, s *types.ResearchSession) error {
	return os.WriteFile(path, []byte(RenderReport(s)), 0o644)
}

// ExportJSON writes the full session to path as indented JSON.
func ExportJSON(path string, s *types.ResearchSession) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportYAML writes the full session to path as YAML.
func ExportYAML(path string, s *types.ResearchSession) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
