// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package claude

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/pdiddy/deep-research/pkg/types"
)

const (
	// planExcerptChars caps per-source content shown to the model during planning.
	planExcerptChars = 2000

	// synthesisSourceChars caps per-source full text shown during synthesis.
	synthesisSourceChars = 20000
)

// systemPromptTmpl frames every API call. The date keeps recency judgments
// and date-filtered searches sensible.
var systemPromptTmpl = template.Must(template.New("system").Parse(`You are a research assistant specializing in scientific literature analysis. Your task is to thoroughly research topics through multiple iterations, analyzing search results, identifying knowledge gaps, and formulating follow-up queries to deepen understanding.

Today's date is {{.Date}}.

Always analyze sources critically.`))

// firstPlanTmpl opens a session: no findings exist yet.
var firstPlanTmpl = template.Must(template.New("firstPlan").Parse(`I want to thoroughly research: '{{.Query}}'.

Choose the first literature search for this topic by calling the plan_search tool. Search queries should ideally be under 5 words. Only add a date range if it is truly needed for the search.`))

// nextPlanTmpl asks for a follow-up search given accumulated findings.
var nextPlanTmpl = template.Must(template.New("nextPlan").Parse(`Research topic: '{{.Query}}'

Findings so far:

{{.Findings}}

Based on what you've learned so far about {{.Query}}, please:

1. Identify a key gap in our current understanding.
2. Formulate a specific follow-up search query to address this gap and call the plan_search tool. You can specify a date range if relevant.

If the accumulated findings are already sufficient for a comprehensive literature review, call the finish_research tool instead.`))

// synthesisTmpl requests the final report.
var synthesisTmpl = template.Must(template.New("synthesis").Parse(`We've completed {{.Iterations}} iteration(s) of research on "{{.Query}}".

Collected findings:

{{.Findings}}

Please synthesize all the information gathered into a lengthy comprehensive research report (at least five pages). This should not be a summary but rather a comprehensive literature review.

You must include proper citations to the sources you've used.

Your report should:
1. Have a clear introduction stating the research question
2. Organize findings into logical sections with headings
3. Provide detailed, lengthy descriptions about the current state of knowledge with numbers, evidence, and quotes from papers
4. Identify remaining questions or areas for future research
5. Conclude with key takeaways
6. Have a complete untruncated references list
7. Be in Markdown format with all sources linked using something like [source](link)`))

// renderSystemPrompt fills the system template with the given date.
func renderSystemPrompt(now time.Time) string {
	var buf bytes.Buffer
	systemPromptTmpl.Execute(&buf, struct{ Date string }{Date: now.Format("Monday, January 2, 2006")})
	return buf.String()
}

// renderPlanPrompt builds the planning prompt from session state.
func renderPlanPrompt(s *types.ResearchSession) (string, error) {
	var buf bytes.Buffer
	if len(s.Iterations) == 0 {
		err := firstPlanTmpl.Execute(&buf, struct{ Query string }{Query: s.Query})
		return buf.String(), err
	}
	err := nextPlanTmpl.Execute(&buf, struct {
		Query    string
		Findings string
	}{
		Query:    s.Query,
		Findings: formatFindings(s, planExcerptChars),
	})
	return buf.String(), err
}

// renderSynthesisPrompt builds the final report prompt from the complete session.
func renderSynthesisPrompt(s *types.ResearchSession) (string, error) {
	findings := formatFindings(s, synthesisSourceChars)
	if len(s.Iterations) == 0 {
		findings = "No sources were collected. State that explicitly and answer from general knowledge, clearly marked as such."
	}
	var buf bytes.Buffer
	err := synthesisTmpl.Execute(&buf, struct {
		Query      string
		Iterations int
		Findings   string
	}{
		Query:      s.Query,
		Iterations: len(s.Iterations),
		Findings:   findings,
	})
	return buf.String(), err
}

// formatFindings renders every iteration's sources in ranking order, with
// per-source content capped at maxChars.
func formatFindings(s *types.ResearchSession, maxChars int) string {
	var b strings.Builder
	for _, it := range s.Iterations {
		fmt.Fprintf(&b, "=== Iteration %d — search: %q ===\n\n", it.Index, it.SearchQuery)
		if len(it.Sources) == 0 {
			b.WriteString("No results found for this search.\n\n")
			continue
		}
		for i, src := range it.Sources {
			b.WriteString(formatSource(i+1, src, maxChars))
		}
	}
	return strings.TrimSpace(b.String())
}

// formatSource renders a single source the way the model sees it: metadata
// lines followed by the best available content.
func formatSource(rank int, src types.SourceResult, maxChars int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- Article %d ---\n", rank)
	fmt.Fprintf(&b, "Title: %s\n", orNA(src.Title))
	fmt.Fprintf(&b, "URL: %s\n", orNA(src.URL))
	if !src.Published.IsZero() {
		fmt.Fprintf(&b, "Published: %s\n", src.Published.Format("2006-01-02"))
	}
	if src.Author != "" {
		fmt.Fprintf(&b, "Author: %s\n", src.Author)
	}

	switch {
	case src.Fetched():
		fmt.Fprintf(&b, "Full content:\n%s\n\n", clip(src.Text, maxChars))
	case src.Excerpt != "":
		if src.FetchError != "" {
			fmt.Fprintf(&b, "(full-text retrieval failed: %s)\n", src.FetchError)
		}
		fmt.Fprintf(&b, "Content excerpt:\n%s\n\n", clip(src.Excerpt, maxChars))
	default:
		b.WriteString("(no content available)\n\n")
	}
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// clip truncates s to max bytes with an ellipsis marker.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
